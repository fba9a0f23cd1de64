package services

import (
	"context"
	"errors"
	"time"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/logger"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	connectionColumns = `id, user_a_id, user_b_id, created_at`
	requestColumns    = `id, sender_id, receiver_id, status, created_at, updated_at`

	// pairClause matches either direction of a user pair bound to $1 and $2.
	pairClause = `((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))`
)

// ConnectionService runs the connection request lifecycle. Every pair is
// canonicalized before it reaches the store.
type ConnectionService struct {
	db  *database.DB
	log *zap.Logger
}

func NewConnectionService(db *database.DB, log *zap.Logger) *ConnectionService {
	return &ConnectionService{db: db, log: logger.OrNop(log)}
}

func scanConnection(row rowScanner) (*models.Connection, error) {
	var c models.Connection
	if err := row.Scan(&c.ID, &c.UserAID, &c.UserBID, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanRequest(row rowScanner) (*models.ConnectionRequest, error) {
	var r models.ConnectionRequest
	var status string
	if err := row.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = models.RequestStatus(status)
	return &r, nil
}

// SendRequest opens a pending request from sender to receiver. Terminal
// requests left over from earlier cycles of the pair are deleted first.
func (s *ConnectionService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.ConnectionRequest, error) {
	const op = "SendRequest"
	if senderID == receiverID {
		return nil, newError(op, KindInvalidTarget, ReasonSelfRequest, "cannot connect to yourself")
	}
	pair := models.CanonicalPair(senderID, receiverID)

	var req *models.ConnectionRequest
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, pair.LockKey()); err != nil {
			return err
		}

		var connected bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM connections WHERE user_a_id = $1 AND user_b_id = $2)
		`, pair.A, pair.B).Scan(&connected); err != nil {
			return err
		}
		if connected {
			return newError(op, KindConflict, ReasonAlreadyConnected, "")
		}

		var pendingSender uuid.UUID
		err := tx.QueryRow(ctx, `
			SELECT sender_id FROM connection_requests
			WHERE status = 'pending' AND `+pairClause+`
		`, senderID, receiverID).Scan(&pendingSender)
		switch {
		case err == nil:
			if pendingSender == senderID {
				return newError(op, KindConflict, ReasonPendingSent, "request already sent")
			}
			return newError(op, KindConflict, ReasonPendingReceived, "the other user already sent a request")
		case !database.IsNoRows(err):
			return err
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM connection_requests
			WHERE status IN ('rejected', 'cancelled') AND `+pairClause,
			senderID, receiverID); err != nil {
			return err
		}

		req, err = scanRequest(tx.QueryRow(ctx, `
			INSERT INTO connection_requests (sender_id, receiver_id, status)
			VALUES ($1, $2, 'pending')
			RETURNING `+requestColumns,
			senderID, receiverID))
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return req, nil
}

func (s *ConnectionService) GetRequest(ctx context.Context, requestID uuid.UUID) (*models.ConnectionRequest, error) {
	req, err := scanRequest(s.db.Pool.QueryRow(ctx, `
		SELECT `+requestColumns+` FROM connection_requests WHERE id = $1
	`, requestID))
	if err != nil {
		return nil, classify("GetRequest", err)
	}
	return req, nil
}

// transition moves a pending request to status with a conditional update.
// Losing a race to another transition surfaces as a retryable conflict.
func transition(ctx context.Context, q database.Querier, op string, requestID uuid.UUID, status models.RequestStatus) (*models.ConnectionRequest, error) {
	req, err := scanRequest(q.QueryRow(ctx, `
		UPDATE connection_requests SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		requestID, string(status)))
	if database.IsNoRows(err) {
		return nil, &Error{Op: op, Kind: KindConflict, Reason: ReasonNotPending, Retryable: true}
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return req, nil
}

func (s *ConnectionService) loadPending(ctx context.Context, op string, requestID uuid.UUID) (*models.ConnectionRequest, error) {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestPending {
		return nil, newError(op, KindConflict, ReasonNotPending, "request is "+string(req.Status))
	}
	return req, nil
}

// AcceptRequest marks the request accepted and inserts the canonical
// connection in one transaction holding the pair lock, so a concurrent
// SendRequest for the pair sees either both effects or neither. If the insert
// fails the rollback puts the request back to pending and the accept can be
// retried.
func (s *ConnectionService) AcceptRequest(ctx context.Context, requestID, actorID uuid.UUID) (*models.Connection, *models.ConnectionRequest, error) {
	const op = "AcceptRequest"
	req, err := s.loadPending(ctx, op, requestID)
	if err != nil {
		return nil, nil, err
	}
	if req.ReceiverID != actorID {
		return nil, nil, newError(op, KindUnauthorized, ReasonNotReceiver, "only the receiver can accept")
	}
	pair := models.CanonicalPair(req.SenderID, req.ReceiverID)

	var (
		conn     *models.Connection
		accepted *models.ConnectionRequest
	)
	err = s.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, pair.LockKey()); err != nil {
			return err
		}

		var err error
		accepted, err = transition(ctx, tx, op, requestID, models.RequestAccepted)
		if err != nil {
			return err
		}

		conn, err = scanConnection(tx.QueryRow(ctx, `
			INSERT INTO connections (user_a_id, user_b_id)
			VALUES ($1, $2)
			RETURNING `+connectionColumns,
			pair.A, pair.B))
		return err
	})
	if err != nil {
		failure := classify(op, err)
		var typed *Error
		if errors.As(failure, &typed) && typed.Compensation != nil {
			s.log.Error("failed to roll back connection accept",
				zap.String("request_id", requestID.String()),
				zap.Error(typed.Err),
				zap.NamedError("rollback_error", typed.Compensation),
			)
		}
		return nil, nil, failure
	}
	return conn, accepted, nil
}

func (s *ConnectionService) RejectRequest(ctx context.Context, requestID, actorID uuid.UUID) (*models.ConnectionRequest, error) {
	const op = "RejectRequest"
	req, err := s.loadPending(ctx, op, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != actorID {
		return nil, newError(op, KindUnauthorized, ReasonNotReceiver, "only the receiver can reject")
	}
	return transition(ctx, s.db.Pool, op, requestID, models.RequestRejected)
}

func (s *ConnectionService) CancelRequest(ctx context.Context, requestID, actorID uuid.UUID) (*models.ConnectionRequest, error) {
	const op = "CancelRequest"
	req, err := s.loadPending(ctx, op, requestID)
	if err != nil {
		return nil, err
	}
	if req.SenderID != actorID {
		return nil, newError(op, KindUnauthorized, ReasonNotSender, "only the sender can cancel")
	}
	return transition(ctx, s.db.Pool, op, requestID, models.RequestCancelled)
}

// RemoveConnection deletes the connection and any accepted request between the pair.
func (s *ConnectionService) RemoveConnection(ctx context.Context, connectionID, actorID uuid.UUID) (*models.Connection, error) {
	const op = "RemoveConnection"

	var removed *models.Connection
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		conn, err := scanConnection(tx.QueryRow(ctx, `
			SELECT `+connectionColumns+` FROM connections WHERE id = $1 FOR UPDATE
		`, connectionID))
		if err != nil {
			return err
		}
		if !conn.Involves(actorID) {
			return newError(op, KindUnauthorized, ReasonNotParty, "")
		}

		if _, err := tx.Exec(ctx, `DELETE FROM connections WHERE id = $1`, connectionID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM connection_requests
			WHERE status = 'accepted' AND `+pairClause,
			conn.UserAID, conn.UserBID); err != nil {
			return err
		}
		removed = conn
		return nil
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return removed, nil
}

// QueryStatus derives the relationship between actor and other, checking
// connections before pending requests.
func (s *ConnectionService) QueryStatus(ctx context.Context, actorID, otherID uuid.UUID) (*models.ConnectionStatus, error) {
	const op = "QueryStatus"
	if actorID == otherID {
		return nil, newError(op, KindInvalidTarget, ReasonSelfRequest, "")
	}
	pair := models.CanonicalPair(actorID, otherID)

	var connID uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id FROM connections WHERE user_a_id = $1 AND user_b_id = $2
	`, pair.A, pair.B).Scan(&connID)
	if err == nil {
		return &models.ConnectionStatus{State: models.StateConnected, ConnectionID: &connID}, nil
	}
	if !database.IsNoRows(err) {
		return nil, classify(op, err)
	}

	var reqID, senderID uuid.UUID
	err = s.db.Pool.QueryRow(ctx, `
		SELECT id, sender_id FROM connection_requests
		WHERE status = 'pending' AND `+pairClause+`
	`, actorID, otherID).Scan(&reqID, &senderID)
	if database.IsNoRows(err) {
		return &models.ConnectionStatus{State: models.StateNone}, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}
	if senderID == actorID {
		return &models.ConnectionStatus{State: models.StatePendingSent, RequestID: &reqID}, nil
	}
	return &models.ConnectionStatus{State: models.StatePendingReceived, RequestID: &reqID}, nil
}

func (s *ConnectionService) ListConnections(ctx context.Context, userID uuid.UUID) ([]models.Connection, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+connectionColumns+` FROM connections
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, classify("ListConnections", err)
	}
	defer rows.Close()

	conns := []models.Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, classify("ListConnections", err)
		}
		conns = append(conns, *c)
	}
	return conns, classify("ListConnections", rows.Err())
}

// ListPendingRequests returns incoming and outgoing pending requests.
func (s *ConnectionService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.ConnectionRequest, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+requestColumns+` FROM connection_requests
		WHERE status = 'pending' AND (sender_id = $1 OR receiver_id = $1)
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, classify("ListPendingRequests", err)
	}
	defer rows.Close()

	reqs := []models.ConnectionRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, classify("ListPendingRequests", err)
		}
		reqs = append(reqs, *r)
	}
	return reqs, classify("ListPendingRequests", rows.Err())
}

// PurgeTerminalRequests deletes rejected and cancelled requests last touched
// before olderThan.
func (s *ConnectionService) PurgeTerminalRequests(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		DELETE FROM connection_requests
		WHERE status IN ('rejected', 'cancelled') AND updated_at < $1
	`, olderThan)
	if err != nil {
		return 0, classify("PurgeTerminalRequests", err)
	}
	return tag.RowsAffected(), nil
}
