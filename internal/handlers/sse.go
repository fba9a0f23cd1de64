package handlers

import (
	"fmt"

	"github.com/dimitrije/teamsync-api/internal/hub"
	"github.com/dimitrije/teamsync-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type SSEHandler struct {
	hub   EventHub
	authz SubscriptionAuthorizer
	log   *zap.Logger
}

func NewSSEHandler(h EventHub, authz SubscriptionAuthorizer, log *zap.Logger) *SSEHandler {
	return &SSEHandler{hub: h, authz: authz, log: log}
}

// Connect opens the event stream. The caller's own user topics are
// subscribed up front; team and project topics are added via Subscribe.
func (h *SSEHandler) Connect(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	sseCtx := c.SSE()

	clientID := uuid.New().String()
	client := &hub.Client{
		ID:     clientID,
		UserID: userID,
		Topics: map[string]bool{
			hub.UserTeamsTopic(userID):       true,
			hub.UserConnectionsTopic(userID): true,
		},
		Send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	if err := sseCtx.SendJSON(map[string]string{
		"type":      "connected",
		"client_id": clientID,
	}, "system", ""); err != nil {
		return
	}

	done := c.Request.Context().Done()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(msg), "message", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// ownClient resolves the clientId path parameter and checks that the stream
// belongs to the caller.
func (h *SSEHandler) ownClient(c *drift.Context, userID uuid.UUID) (string, bool) {
	clientID := c.Param("clientId")
	if clientID == "" {
		c.BadRequest("client_id is required")
		return "", false
	}
	owner, ok := h.hub.ClientUser(clientID)
	if !ok || owner != userID {
		c.NotFound("client not found")
		return "", false
	}
	return clientID, true
}

func (h *SSEHandler) Subscribe(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	clientID, ok := h.ownClient(c, userID)
	if !ok {
		return
	}

	var req dto.SubscriptionRequest
	if !bind(c, &req) {
		return
	}

	allowed, err := h.authz.CanSubscribe(c.Request.Context(), userID, req.Topic)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !allowed {
		c.Forbidden("not allowed to subscribe to this topic")
		return
	}

	if !h.hub.Subscribe(clientID, req.Topic) {
		c.NotFound("client not found")
		return
	}
	_ = c.JSON(200, dto.MessageResponse{Message: fmt.Sprintf("subscribed to %s", req.Topic)})
}

func (h *SSEHandler) Unsubscribe(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	clientID, ok := h.ownClient(c, userID)
	if !ok {
		return
	}

	var req dto.SubscriptionRequest
	if !bind(c, &req) {
		return
	}

	h.hub.Unsubscribe(clientID, req.Topic)
	_ = c.JSON(200, dto.MessageResponse{Message: fmt.Sprintf("unsubscribed from %s", req.Topic)})
}
