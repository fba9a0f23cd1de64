package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendConnectionRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

type ConnectionRequestResponse struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ConnectionResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ConnectionStatusResponse struct {
	State        string     `json:"state"`
	RequestID    *uuid.UUID `json:"request_id,omitempty"`
	ConnectionID *uuid.UUID `json:"connection_id,omitempty"`
}

type SubscriptionRequest struct {
	Topic string `json:"topic" validate:"required"`
}
