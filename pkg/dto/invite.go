package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateInviteRequest struct {
	ExpiresInDays int  `json:"expires_in_days" validate:"min=0"`
	MaxUses       *int `json:"max_uses" validate:"omitempty,min=1"`
}

type InviteResponse struct {
	ID        uuid.UUID     `json:"id"`
	TeamID    uuid.UUID     `json:"team_id"`
	Code      string        `json:"invite_code"`
	ExpiresAt time.Time     `json:"expires_at"`
	UsesLeft  *int          `json:"uses_left"`
	CreatedAt time.Time     `json:"created_at"`
	Team      *TeamResponse `json:"team,omitempty"`
}
