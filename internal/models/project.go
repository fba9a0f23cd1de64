package models

import (
	"time"

	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
)

type Project struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	TeamID       *uuid.UUID `json:"team_id,omitempty"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ProjectMember struct {
	ProjectID uuid.UUID  `json:"project_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      roles.Role `json:"role"`
	JoinedAt  time.Time  `json:"joined_at"`
}
