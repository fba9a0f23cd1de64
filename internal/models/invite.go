package models

import (
	"time"

	"github.com/google/uuid"
)

type TeamInvite struct {
	ID        uuid.UUID `json:"id"`
	TeamID    uuid.UUID `json:"team_id"`
	CreatedBy uuid.UUID `json:"created_by"`
	Code      string    `json:"invite_code"`
	ExpiresAt time.Time `json:"expires_at"`
	UsesLeft  *int      `json:"uses_left"` // nil means unlimited
	CreatedAt time.Time `json:"created_at"`
	Team      *Team     `json:"team,omitempty"`
}

func (i TeamInvite) Expired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

func (i TeamInvite) Exhausted() bool {
	return i.UsesLeft != nil && *i.UsesLeft <= 0
}

func (i TeamInvite) Usable(now time.Time) bool {
	return !i.Expired(now) && !i.Exhausted()
}
