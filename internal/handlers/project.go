package handlers

import (
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/dimitrije/teamsync-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	org OrgCoordinator
	log *zap.Logger
}

func NewProjectHandler(org OrgCoordinator, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{org: org, log: log}
}

func (h *ProjectHandler) Create(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if !bind(c, &req) {
		return
	}

	project, err := h.org.CreateProject(c.Request.Context(), userID, services.ProjectInput{
		Name:         req.Name,
		TeamID:       req.TeamID,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(201, projectResponse(project))
}

func (h *ProjectHandler) Get(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.org.GetProject(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, projectResponse(project))
}

func (h *ProjectHandler) Delete(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.org.DeleteProject(c.Request.Context(), userID, projectID); err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, dto.MessageResponse{Message: "project deleted"})
}

func (h *ProjectHandler) TransferOwnership(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req dto.TransferOwnershipRequest
	if !bind(c, &req) {
		return
	}

	project, err := h.org.TransferProjectOwnership(c.Request.Context(), userID, projectID, req.NewOwnerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, projectResponse(project))
}

func (h *ProjectHandler) ListMembers(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	members, err := h.org.ListProjectMembers(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response := make([]dto.ProjectMemberResponse, len(members))
	for i, m := range members {
		response[i] = dto.ProjectMemberResponse{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt}
	}
	_ = c.JSON(200, response)
}

func (h *ProjectHandler) AddMember(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req dto.AddProjectMemberRequest
	if !bind(c, &req) {
		return
	}
	role, err := roles.ParseRole(req.Role)
	if err != nil {
		c.BadRequest("invalid role")
		return
	}

	m, err := h.org.AddProjectMember(c.Request.Context(), userID, projectID, req.UserID, role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(201, membershipResponse(m))
}

func (h *ProjectHandler) RemoveMember(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}
	memberID, ok := paramID(c, "userId", "user")
	if !ok {
		return
	}

	m, err := h.org.RemoveProjectMember(c.Request.Context(), userID, projectID, memberID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, membershipResponse(m))
}

func (h *ProjectHandler) ChangeRole(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	projectID, ok := paramID(c, "id", "project")
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

	m, err := h.org.ChangeProjectMemberRole(c.Request.Context(), userID, projectID, memberID, role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, membershipResponse(m))
}
