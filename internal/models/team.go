package models

import (
	"time"

	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
)

type Team struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IconSeed    string    `json:"icon_seed"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TeamMember struct {
	TeamID      uuid.UUID           `json:"team_id"`
	UserID      uuid.UUID           `json:"user_id"`
	Role        roles.Role          `json:"role"`
	Permissions roles.PermissionSet `json:"permissions"`
	Tags        []string            `json:"tags"`
	JoinedAt    time.Time           `json:"joined_at"`
	User        *User               `json:"user,omitempty"`
}

// Effective resolves stored permissions against the role defaults.
func (m TeamMember) Effective() roles.PermissionSet {
	return roles.EffectivePermissions(m.Role, m.Permissions)
}

type Department struct {
	ID          uuid.UUID `json:"id"`
	TeamID      uuid.UUID `json:"team_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type DepartmentMember struct {
	DepartmentID uuid.UUID  `json:"department_id"`
	UserID       uuid.UUID  `json:"user_id"`
	Role         roles.Role `json:"role"`
	JoinedAt     time.Time  `json:"joined_at"`
}

// UserTeam is a team as seen by one of its members.
type UserTeam struct {
	Team
	Role roles.Role `json:"role"`
}
