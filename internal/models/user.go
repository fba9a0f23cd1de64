package models

import (
	"time"

	"github.com/google/uuid"
)

// User identity is owned by the external auth provider; this is a read-only mirror.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
