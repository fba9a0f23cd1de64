package handlers

import (
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/dimitrije/teamsync-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type DepartmentHandler struct {
	org OrgCoordinator
	log *zap.Logger
}

func NewDepartmentHandler(org OrgCoordinator, log *zap.Logger) *DepartmentHandler {
	return &DepartmentHandler{org: org, log: log}
}

func (h *DepartmentHandler) Create(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	var req dto.CreateDepartmentRequest
	if !bind(c, &req) {
		return
	}

	dept, err := h.org.CreateDepartment(c.Request.Context(), userID, teamID, services.DepartmentInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(201, departmentResponse(dept))
}

func (h *DepartmentHandler) List(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	depts, err := h.org.ListDepartments(c.Request.Context(), userID, teamID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response := make([]dto.DepartmentResponse, len(depts))
	for i := range depts {
		response[i] = departmentResponse(&depts[i])
	}
	_ = c.JSON(200, response)
}

func (h *DepartmentHandler) Get(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	deptID, ok := paramID(c, "id", "department")
	if !ok {
		return
	}

	dept, err := h.org.GetDepartment(c.Request.Context(), userID, deptID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, departmentResponse(dept))
}

func (h *DepartmentHandler) Update(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	deptID, ok := paramID(c, "id", "department")
	if !ok {
		return
	}

	var req dto.UpdateDepartmentRequest
	if !bind(c, &req) {
		return
	}

	dept, err := h.org.UpdateDepartment(c.Request.Context(), userID, deptID, services.DepartmentUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, departmentResponse(dept))
}

func (h *DepartmentHandler) Delete(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	deptID, ok := paramID(c, "id", "department")
	if !ok {
		return
	}

	if err := h.org.DeleteDepartment(c.Request.Context(), userID, deptID); err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, dto.MessageResponse{Message: "department deleted"})
}

func (h *DepartmentHandler) ListMembers(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	deptID, ok := paramID(c, "id", "department")
	if !ok {
		return
	}

	members, err := h.org.ListDepartmentMembers(c.Request.Context(), userID, deptID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response := make([]dto.DepartmentMemberResponse, len(members))
	for i, m := range members {
		response[i] = dto.DepartmentMemberResponse{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt}
	}
	_ = c.JSON(200, response)
}

func (h *DepartmentHandler) AddMember(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	deptID, ok := paramID(c, "id", "department")
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if !bind(c, &req) {
		return
	}
	role, err := roles.ParseDepartmentRole(req.Role)
	if err != nil {
		c.BadRequest("invalid role")
		return
	}

	m, err := h.org.AddDepartmentMember(c.Request.Context(), userID, deptID, req.UserID, role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(201, membershipResponse(m))
}

func (h *DepartmentHandler) RemoveMember(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	deptID, ok := paramID(c, "id", "department")
	if !ok {
		return
	}
	memberID, ok := paramID(c, "userId", "user")
	if !ok {
		return
	}

	m, err := h.org.RemoveDepartmentMember(c.Request.Context(), userID, deptID, memberID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, membershipResponse(m))
}

func (h *DepartmentHandler) ChangeRole(c *drift.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	deptID, ok := paramID(c, "id", "department")
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
	role, err := roles.ParseDepartmentRole(req.Role)
	if err != nil {
		c.BadRequest("invalid role")
		return
	}

	m, err := h.org.ChangeDepartmentMemberRole(c.Request.Context(), userID, deptID, memberID, role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_ = c.JSON(200, membershipResponse(m))
}
