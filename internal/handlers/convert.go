package handlers

import (
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/pkg/dto"
	"github.com/google/uuid"
)

func teamResponse(t *models.Team, role string) dto.TeamResponse {
	return dto.TeamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		IconSeed:    t.IconSeed,
		OwnerID:     t.OwnerID,
		Role:        role,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func userResponse(u *models.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

func teamMemberResponse(m models.TeamMember) dto.TeamMemberResponse {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.TeamMemberResponse{
		UserID:      m.UserID,
		Role:        string(m.Role),
		Permissions: m.Effective().Strings(),
		Tags:        tags,
		JoinedAt:    m.JoinedAt,
		User:        userResponse(m.User),
	}
}

func membershipResponse(m *models.Membership) dto.MembershipResponse {
	resp := dto.MembershipResponse{
		Scope:      string(m.Scope),
		ResourceID: m.ResourceID,
		UserID:     m.UserID,
		Role:       string(m.Role),
		Tags:       m.Tags,
	}
	if m.Scope == models.ScopeTeam {
		resp.Permissions = m.Permissions.Strings()
	}
	return resp
}

func departmentResponse(d *models.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:          d.ID,
		TeamID:      d.TeamID,
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}

func projectResponse(p *models.Project) dto.ProjectResponse {
	return dto.ProjectResponse{
		ID:           p.ID,
		Name:         p.Name,
		OwnerID:      p.OwnerID,
		TeamID:       p.TeamID,
		DepartmentID: p.DepartmentID,
		CreatedAt:    p.CreatedAt,
	}
}

func inviteResponse(inv *models.TeamInvite) dto.InviteResponse {
	resp := dto.InviteResponse{
		ID:        inv.ID,
		TeamID:    inv.TeamID,
		Code:      inv.Code,
		ExpiresAt: inv.ExpiresAt,
		UsesLeft:  inv.UsesLeft,
		CreatedAt: inv.CreatedAt,
	}
	if inv.Team != nil {
		t := teamResponse(inv.Team, "")
		resp.Team = &t
	}
	return resp
}

func requestResponse(r *models.ConnectionRequest) dto.ConnectionRequestResponse {
	return dto.ConnectionRequestResponse{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func connectionResponse(c *models.Connection, viewer uuid.UUID) dto.ConnectionResponse {
	return dto.ConnectionResponse{
		ID:        c.ID,
		UserID:    c.Other(viewer),
		CreatedAt: c.CreatedAt,
	}
}
