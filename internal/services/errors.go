package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dimitrije/teamsync-api/internal/database"
)

type Kind string

const (
	KindUnauthorized  Kind = "unauthorized"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindInvalidTarget Kind = "invalid_target"
	KindExpired       Kind = "expired"
	KindExhausted     Kind = "exhausted"
	KindTransient     Kind = "transient"
	KindInvalidInput  Kind = "invalid_input"
)

// Reason is the machine-readable code attached to denials and failures.
type Reason string

const (
	ReasonNotAMember            Reason = "NOT_A_MEMBER"
	ReasonInsufficientRole      Reason = "INSUFFICIENT_ROLE"
	ReasonCannotTargetOwner     Reason = "CANNOT_TARGET_OWNER"
	ReasonCannotTargetPeerAdmin Reason = "CANNOT_TARGET_PEER_ADMIN"

	ReasonNotOwner           Reason = "NOT_OWNER"
	ReasonTargetNotMember    Reason = "TARGET_NOT_MEMBER"
	ReasonTargetAlreadyOwner Reason = "TARGET_ALREADY_OWNER"
	ReasonTargetIsOwner      Reason = "TARGET_IS_OWNER"
	ReasonOwnerMustTransfer  Reason = "OWNER_MUST_TRANSFER"
	ReasonAlreadyMember      Reason = "ALREADY_MEMBER"
	ReasonDepartmentMismatch Reason = "DEPARTMENT_NOT_IN_TEAM"

	ReasonSelfRequest      Reason = "SELF_REQUEST"
	ReasonAlreadyConnected Reason = "ALREADY_CONNECTED"
	ReasonPendingSent      Reason = "PENDING_SENT"
	ReasonPendingReceived  Reason = "PENDING_RECEIVED"
	ReasonNotReceiver      Reason = "NOT_RECEIVER"
	ReasonNotSender        Reason = "NOT_SENDER"
	ReasonNotParty         Reason = "NOT_PARTY"
	ReasonNotPending       Reason = "NOT_PENDING"
)

// Error is the typed failure returned by every service operation.
//
// Err carries the underlying cause. Compensation is set when a multi-step
// mutation failed and the attempt to undo its earlier steps failed too.
type Error struct {
	Kind         Kind
	Reason       Reason
	Op           string
	Message      string
	Err          error
	Compensation error
	Retryable    bool
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Reason))
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Compensation != nil {
		b.WriteString("; compensation failed: ")
		b.WriteString(e.Compensation.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Compensation != nil {
		errs = append(errs, e.Compensation)
	}
	return errs
}

// Is matches on Kind, and on Reason when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrInvalidTarget = &Error{Kind: KindInvalidTarget}
	ErrExpired       = &Error{Kind: KindExpired}
	ErrExhausted     = &Error{Kind: KindExhausted}
	ErrTransient     = &Error{Kind: KindTransient}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}

	ErrNotAMember            = &Error{Kind: KindUnauthorized, Reason: ReasonNotAMember}
	ErrCannotTargetOwner     = &Error{Kind: KindUnauthorized, Reason: ReasonCannotTargetOwner}
	ErrCannotTargetPeerAdmin = &Error{Kind: KindUnauthorized, Reason: ReasonCannotTargetPeerAdmin}
	ErrNotOwner              = &Error{Kind: KindUnauthorized, Reason: ReasonNotOwner}
	ErrTargetNotMember       = &Error{Kind: KindNotFound, Reason: ReasonTargetNotMember}
	ErrTargetAlreadyOwner    = &Error{Kind: KindInvalidTarget, Reason: ReasonTargetAlreadyOwner}
	ErrTargetIsOwner         = &Error{Kind: KindInvalidTarget, Reason: ReasonTargetIsOwner}
	ErrOwnerMustTransfer     = &Error{Kind: KindInvalidTarget, Reason: ReasonOwnerMustTransfer}
	ErrAlreadyMember         = &Error{Kind: KindConflict, Reason: ReasonAlreadyMember}
	ErrSelfRequest           = &Error{Kind: KindInvalidTarget, Reason: ReasonSelfRequest}
	ErrAlreadyConnected      = &Error{Kind: KindConflict, Reason: ReasonAlreadyConnected}
	ErrNotPending            = &Error{Kind: KindConflict, Reason: ReasonNotPending}
)

func newError(op string, kind Kind, reason Reason, msg string) *Error {
	return &Error{Op: op, Kind: kind, Reason: reason, Message: msg}
}

func invalidInput(op, format string, args ...any) *Error {
	return &Error{Op: op, Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// classify converts a store failure into a typed error. Errors that are
// already typed pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var rb *database.RollbackError
	if errors.As(err, &rb) {
		failure := &Error{Op: op, Kind: KindConflict, Err: rb.Err}
		if typed, ok := classify(op, rb.Err).(*Error); ok {
			cp := *typed
			failure = &cp
		}
		failure.Compensation = rb.Rollback
		failure.Retryable = false
		return failure
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	switch {
	case database.IsNoRows(err):
		return &Error{Op: op, Kind: KindNotFound, Err: err}
	case database.IsForeignKeyViolation(err):
		return &Error{Op: op, Kind: KindNotFound, Message: "referenced row does not exist", Err: err}
	case database.IsUniqueViolation(err):
		return &Error{Op: op, Kind: KindConflict, Err: err}
	case database.IsSerializationConflict(err):
		return &Error{Op: op, Kind: KindConflict, Err: err, Retryable: true}
	case database.IsTransient(err):
		return &Error{Op: op, Kind: KindTransient, Err: err, Retryable: true}
	case database.IsCheckViolation(err):
		return &Error{Op: op, Kind: KindInvalidInput, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// KindOf reports the kind of a typed error, or "" for untyped failures.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return ""
}

// ReasonOf reports the reason code of a typed error.
func ReasonOf(err error) Reason {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Reason
	}
	return ""
}

// IsRetryable reports whether the failed operation can be repeated as-is.
func IsRetryable(err error) bool {
	var typed *Error
	return errors.As(err, &typed) && typed.Retryable
}
