package handlers

import (
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/dimitrije/teamsync-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type TeamHandler struct {
	teams TeamCoordinator
	log   *zap.Logger
}

func NewTeamHandler(teams TeamCoordinator, log *zap.Logger) *TeamHandler {
	return &TeamHandler{teams: teams, log: log}
}

func (h *TeamHandler) Create(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	var req dto.CreateTeamRequest
	if !bind(c, &req) {
		return
	}

	team, err := h.teams.CreateTeam(c.Request.Context(), userID, services.TeamInput{
		Name:        req.Name,
		Description: req.Description,
		IconSeed:    req.IconSeed,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	_ = c.JSON(201, teamResponse(team, string(roles.Owner)))
}

func (h *TeamHandler) List(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	teams, err := h.teams.ListUserTeams(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response := make([]dto.TeamResponse, len(teams))
	for i := range teams {
		response[i] = teamResponse(&teams[i].Team, string(teams[i].Role))
	}
	_ = c.JSON(200, response)
}

func (h *TeamHandler) Get(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	team, err := h.teams.GetTeam(c.Request.Context(), userID, teamID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, teamResponse(team, ""))
}

func (h *TeamHandler) Update(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	var req dto.UpdateTeamRequest
	if !bind(c, &req) {
		return
	}

	team, err := h.teams.UpdateTeam(c.Request.Context(), userID, teamID, services.TeamUpdate{
		Name:        req.Name,
		Description: req.Description,
		IconSeed:    req.IconSeed,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, teamResponse(team, ""))
}

func (h *TeamHandler) Delete(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	if err := h.teams.DeleteTeam(c.Request.Context(), userID, teamID); err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, dto.MessageResponse{Message: "team deleted"})
}

func (h *TeamHandler) ListMembers(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	members, err := h.teams.ListTeamMembers(c.Request.Context(), userID, teamID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response := make([]dto.TeamMemberResponse, len(members))
	for i, m := range members {
		response[i] = teamMemberResponse(m)
	}
	_ = c.JSON(200, response)
}

func (h *TeamHandler) AddMember(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if !bind(c, &req) {
		return
	}
	role, err := roles.ParseRole(req.Role)
	if err != nil {
		c.BadRequest("invalid role")
		return
	}

	m, err := h.teams.AddTeamMember(c.Request.Context(), userID, teamID, req.UserID, role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(201, membershipResponse(m))
}

func (h *TeamHandler) RemoveMember(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}
	memberID, ok := paramID(c, "userId", "user")
	if !ok {
		return
	}

	m, err := h.teams.RemoveTeamMember(c.Request.Context(), userID, teamID, memberID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, membershipResponse(m))
}

func (h *TeamHandler) ChangeRole(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}
	memberID, ok := paramID(c, "userId", "user")
	if !ok {
		return
	}

	var req dto.ChangeRoleRequest
	if !bind(c, &req) {
		return
	}
	role, err := roles.ParseRole(req.Role)
	if err != nil {
		c.BadRequest("invalid role")
		return
	}

	m, err := h.teams.ChangeTeamMemberRole(c.Request.Context(), userID, teamID, memberID, role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, membershipResponse(m))
}

func (h *TeamHandler) SetTags(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}
	memberID, ok := paramID(c, "userId", "user")
	if !ok {
		return
	}

	var req dto.SetTagsRequest
	if !bind(c, &req) {
		return
	}

	m, err := h.teams.SetTeamMemberTags(c.Request.Context(), userID, teamID, memberID, req.Tags)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, membershipResponse(m))
}

func (h *TeamHandler) Leave(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	if _, err := h.teams.LeaveTeam(c.Request.Context(), userID, teamID); err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, dto.MessageResponse{Message: "left team"})
}

func (h *TeamHandler) TransferOwnership(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	var req dto.TransferOwnershipRequest
	if !bind(c, &req) {
		return
	}

	team, err := h.teams.TransferOwnership(c.Request.Context(), userID, teamID, req.NewOwnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, teamResponse(team, string(roles.Admin)))
}
