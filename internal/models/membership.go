package models

import (
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
)

type Scope string

const (
	ScopeTeam       Scope = "team"
	ScopeDepartment Scope = "department"
	ScopeProject    Scope = "project"
)

// Membership is the projection returned by every membership mutation.
type Membership struct {
	Scope       Scope               `json:"scope"`
	ResourceID  uuid.UUID           `json:"resource_id"`
	UserID      uuid.UUID           `json:"user_id"`
	Role        roles.Role          `json:"role"`
	Permissions roles.PermissionSet `json:"permissions"`
	Tags        []string            `json:"tags,omitempty"`
}

func (m TeamMember) Projection() *Membership {
	return &Membership{
		Scope:       ScopeTeam,
		ResourceID:  m.TeamID,
		UserID:      m.UserID,
		Role:        m.Role,
		Permissions: m.Effective(),
		Tags:        m.Tags,
	}
}

func (m DepartmentMember) Projection() *Membership {
	return &Membership{
		Scope:      ScopeDepartment,
		ResourceID: m.DepartmentID,
		UserID:     m.UserID,
		Role:       m.Role,
	}
}

func (m ProjectMember) Projection() *Membership {
	return &Membership{
		Scope:      ScopeProject,
		ResourceID: m.ProjectID,
		UserID:     m.UserID,
		Role:       m.Role,
	}
}
