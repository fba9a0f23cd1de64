package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateProjectRequest struct {
	Name         string     `json:"name" validate:"required,max=100"`
	TeamID       *uuid.UUID `json:"team_id"`
	DepartmentID *uuid.UUID `json:"department_id"`
}

type AddProjectMemberRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role" validate:"required,oneof=admin member"`
}

type ProjectResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	TeamID       *uuid.UUID `json:"team_id,omitempty"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ProjectMemberResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
