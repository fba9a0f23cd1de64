package handlers

import (
	"github.com/dimitrije/teamsync-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type ConnectionHandler struct {
	connections ConnectionCoordinator
	log         *zap.Logger
}

func NewConnectionHandler(connections ConnectionCoordinator, log *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{connections: connections, log: log}
}

func (h *ConnectionHandler) SendRequest(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	var req dto.SendConnectionRequest
	if !bind(c, &req) {
		return
	}

	r, err := h.connections.SendConnectionRequest(c.Request.Context(), userID, req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(201, requestResponse(r))
}

func (h *ConnectionHandler) AcceptRequest(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	requestID, ok := paramID(c, "id", "request")
	if !ok {
		return
	}

	conn, err := h.connections.AcceptConnectionRequest(c.Request.Context(), userID, requestID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(201, connectionResponse(conn, userID))
}

func (h *ConnectionHandler) RejectRequest(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	requestID, ok := paramID(c, "id", "request")
	if !ok {
		return
	}

	r, err := h.connections.RejectConnectionRequest(c.Request.Context(), userID, requestID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, requestResponse(r))
}

func (h *ConnectionHandler) CancelRequest(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	requestID, ok := paramID(c, "id", "request")
	if !ok {
		return
	}

	r, err := h.connections.CancelConnectionRequest(c.Request.Context(), userID, requestID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, requestResponse(r))
}

func (h *ConnectionHandler) ListPending(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	requests, err := h.connections.ListPendingRequests(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response := make([]dto.ConnectionRequestResponse, len(requests))
	for i := range requests {
		response[i] = requestResponse(&requests[i])
	}
	_ = c.JSON(200, response)
}

func (h *ConnectionHandler) List(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	conns, err := h.connections.ListConnections(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response := make([]dto.ConnectionResponse, len(conns))
	for i := range conns {
		response[i] = connectionResponse(&conns[i], userID)
	}
	_ = c.JSON(200, response)
}

func (h *ConnectionHandler) Remove(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	connID, ok := paramID(c, "id", "connection")
	if !ok {
		return
	}

	if _, err := h.connections.RemoveConnection(c.Request.Context(), userID, connID); err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, dto.MessageResponse{Message: "connection removed"})
}

func (h *ConnectionHandler) Status(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	otherID, ok := paramID(c, "userId", "user")
	if !ok {
		return
	}

	st, err := h.connections.ConnectionStatus(c.Request.Context(), userID, otherID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, dto.ConnectionStatusResponse{
		State:        string(st.State),
		RequestID:    st.RequestID,
		ConnectionID: st.ConnectionID,
	})
}
