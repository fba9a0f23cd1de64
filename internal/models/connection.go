package models

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) IsTerminal() bool {
	return s == RequestAccepted || s == RequestRejected || s == RequestCancelled
}

type Connection struct {
	ID        uuid.UUID `json:"id"`
	UserAID   uuid.UUID `json:"user_a_id"`
	UserBID   uuid.UUID `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Other returns the party that is not userID.
func (c Connection) Other(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

func (c Connection) Involves(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

type ConnectionRequest struct {
	ID         uuid.UUID     `json:"id"`
	SenderID   uuid.UUID     `json:"sender_id"`
	ReceiverID uuid.UUID     `json:"receiver_id"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Pair is an unordered user pair stored with the smaller id first.
type Pair struct {
	A uuid.UUID
	B uuid.UUID
}

// CanonicalPair orders two ids bytewise, which matches Postgres uuid ordering.
func CanonicalPair(x, y uuid.UUID) Pair {
	if bytes.Compare(x[:], y[:]) <= 0 {
		return Pair{A: x, B: y}
	}
	return Pair{A: y, B: x}
}

// LockKey identifies the pair for advisory locking.
func (p Pair) LockKey() string {
	return p.A.String() + ":" + p.B.String()
}

type ConnectionState string

const (
	StateNone            ConnectionState = "none"
	StatePendingSent     ConnectionState = "pending_sent"
	StatePendingReceived ConnectionState = "pending_received"
	StateConnected       ConnectionState = "connected"
)

type ConnectionStatus struct {
	State        ConnectionState `json:"state"`
	RequestID    *uuid.UUID      `json:"request_id,omitempty"`
	ConnectionID *uuid.UUID      `json:"connection_id,omitempty"`
}
