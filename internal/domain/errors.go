package domain

import (
	"errors"
	"fmt"
)

// SessionErrorKind classifies every failure a session can produce.
// Callers branch on the kind, not on error strings.
type SessionErrorKind int

const (
	// SeedFailed is the one-shot open-orders fetch at session start
	// failing. Non-fatal: the session continues with an empty set.
	SeedFailed SessionErrorKind = iota

	// BadRecord is a single malformed position/order/fill record.
	// The record is skipped; the batch continues.
	BadRecord

	// UpstreamFailed is the upstream connection failing to open,
	// erroring mid-stream, or pushing undecodable frames repeatedly.
	// Fatal to the session.
	UpstreamFailed

	// DownstreamGone is the subscriber disconnecting. Fatal to the
	// session, but normal termination rather than an error condition.
	DownstreamGone

	// FetchFailed is a REST facade fetch failing. Surfaced as a
	// structured error field, never as a hard failure status.
	FetchFailed
)

func (k SessionErrorKind) String() string {
	switch k {
	case SeedFailed:
		return "seed_failed"
	case BadRecord:
		return "bad_record"
	case UpstreamFailed:
		return "upstream_failed"
	case DownstreamGone:
		return "downstream_gone"
	case FetchFailed:
		return "fetch_failed"
	}
	return "unknown"
}

// SessionError is the outcome type for session and facade failures.
type SessionError struct {
	Kind SessionErrorKind
	Op   string // operation that failed, e.g. "dial", "publish"
	Err  error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Err.Error())
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error terminates the session.
func (e *SessionError) Fatal() bool {
	return e.Kind == UpstreamFailed || e.Kind == DownstreamGone
}

// NewSessionError wraps err with a kind and the failing operation.
func NewSessionError(kind SessionErrorKind, op string, err error) *SessionError {
	return &SessionError{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the session error kind, if err carries one.
func KindOf(err error) (SessionErrorKind, bool) {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// IsDownstreamGone reports whether err is a subscriber disconnect.
func IsDownstreamGone(err error) bool {
	k, ok := KindOf(err)
	return ok && k == DownstreamGone
}

var (
	// ErrMissingField is returned when a raw upstream record lacks a
	// required field. Local to the one record, never batch-fatal.
	ErrMissingField = errors.New("missing required field")

	// ErrUpstreamClosed is returned when the multiplexed connection
	// closes mid-stream.
	ErrUpstreamClosed = errors.New("upstream connection closed")
)
