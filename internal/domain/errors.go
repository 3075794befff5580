package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can distinguish routine game outcomes
// (late answer, duplicate submission) from real faults. All kinds except
// KindUnavailable are expected in normal play and should not be logged as errors.
type Kind int

const (
	// KindNotFound covers unknown pins, quizzes, players, and questions.
	KindNotFound Kind = iota
	// KindInvalidState means the operation is not legal in the session's current phase.
	KindInvalidState
	// KindAlreadyAnswered marks a duplicate submission; the first accepted answer stands.
	KindAlreadyAnswered
	// KindStaleQuestion marks an answer targeting a question that is no longer current.
	KindStaleQuestion
	// KindTimeExpired marks an answer arriving after the server-side deadline plus grace.
	KindTimeExpired
	// KindValidation marks malformed input such as an empty name or an unknown option.
	KindValidation
	// KindUnavailable marks a genuine fault in a collaborator (store, generator).
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindAlreadyAnswered:
		return "already_answered"
	case KindStaleQuestion:
		return "stale_question"
	case KindTimeExpired:
		return "time_expired"
	case KindValidation:
		return "validation_error"
	case KindUnavailable:
		return "service_unavailable"
	}
	return "unknown"
}

// Error is a typed failure returned from the command interface.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a typed error with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapUnavailable marks a collaborator fault without discarding its cause.
func WrapUnavailable(msg string, err error) error {
	return &Error{Kind: KindUnavailable, Message: msg + ": " + err.Error(), Err: err}
}

// KindOf extracts the Kind from err, defaulting to KindUnavailable for
// untyped failures.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnavailable
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
