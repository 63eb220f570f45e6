// Package errors defines the typed rejection taxonomy of the reservation
// engine. Every validation, authorization and state-machine failure is
// detected before any mutation and surfaced as one of these kinds.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidRange covers malformed or inverted date ranges.
	KindInvalidRange
	// KindItemUnavailable means the car's availability kill-switch is off.
	KindItemUnavailable
	// KindDateConflict means the requested range overlaps an active reservation.
	KindDateConflict
	KindNotFound
	// KindUnauthorized means the actor lacks the role or ownership required.
	KindUnauthorized
	// KindInvalidStateTransition covers illegal lifecycle moves, duplicate
	// cancellation requests and cancelling an already-started rental.
	KindInvalidStateTransition
	// KindConcurrencyConflict means the request lost a read-check-write race.
	// It is the only kind the engine retries internally.
	KindConcurrencyConflict
	// KindUnavailable signals a store connectivity failure.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRange:
		return "invalid_range"
	case KindItemUnavailable:
		return "item_unavailable"
	case KindDateConflict:
		return "date_conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidStateTransition:
		return "invalid_state_transition"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a typed rejection.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef builds a typed rejection with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, KindUnknown if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps a rejection to the status code the API layer returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidRange, KindInvalidStateTransition:
		return http.StatusBadRequest
	case KindItemUnavailable, KindDateConflict, KindConcurrencyConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
