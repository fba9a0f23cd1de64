package handlers

import (
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/dimitrije/teamsync-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type InviteHandler struct {
	invites InviteCoordinator
	log     *zap.Logger
}

func NewInviteHandler(invites InviteCoordinator, log *zap.Logger) *InviteHandler {
	return &InviteHandler{invites: invites, log: log}
}

// Create returns 201 for a fresh code and 200 when the caller's existing
// usable invite is handed back.
func (h *InviteHandler) Create(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	var req dto.CreateInviteRequest
	if !bind(c, &req) {
		return
	}

	inv, created, err := h.invites.CreateInvite(c.Request.Context(), userID, teamID, services.InviteInput{
		TTLDays: req.ExpiresInDays,
		MaxUses: req.MaxUses,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	status := 200
	if created {
		status = 201
	}
	_ = c.JSON(status, inviteResponse(inv))
}

func (h *InviteHandler) List(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	invites, err := h.invites.ListTeamInvites(c.Request.Context(), userID, teamID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response := make([]dto.InviteResponse, len(invites))
	for i := range invites {
		response[i] = inviteResponse(&invites[i])
	}
	_ = c.JSON(200, response)
}

func (h *InviteHandler) Revoke(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}
	inviteID, ok := paramID(c, "inviteId", "invite")
	if !ok {
		return
	}

	if err := h.invites.RevokeInvite(c.Request.Context(), userID, teamID, inviteID); err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, dto.MessageResponse{Message: "invite revoked"})
}

// Resolve previews an invite without authentication.
func (h *InviteHandler) Resolve(c *drift.Context) {
	inv, err := h.invites.ResolveInvite(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, inviteResponse(inv))
}

func (h *InviteHandler) Accept(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	inv, err := h.invites.AcceptInvite(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, inviteResponse(inv))
}
