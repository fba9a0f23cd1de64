package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	IconSeed    string `json:"icon_seed" validate:"max=64"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IconSeed    *string `json:"icon_seed" validate:"omitempty,max=64"`
}

type TeamResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IconSeed    string    `json:"icon_seed"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Role        string    `json:"role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role" validate:"required,oneof=admin member"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin member"`
}

type SetTagsRequest struct {
	Tags []string `json:"tags" validate:"max=20,dive,max=32"`
}

type TransferOwnershipRequest struct {
	NewOwnerID uuid.UUID `json:"new_owner_id" validate:"required"`
}

type TeamMemberResponse struct {
	UserID      uuid.UUID     `json:"user_id"`
	Role        string        `json:"role"`
	Permissions []string      `json:"permissions"`
	Tags        []string      `json:"tags"`
	JoinedAt    time.Time     `json:"joined_at"`
	User        *UserResponse `json:"user,omitempty"`
}

// MembershipResponse is returned by every member mutation regardless of scope.
type MembershipResponse struct {
	Scope       string    `json:"scope"`
	ResourceID  uuid.UUID `json:"resource_id"`
	UserID      uuid.UUID `json:"user_id"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}
