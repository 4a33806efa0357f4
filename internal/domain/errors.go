package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or has expired.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in quiz")
	// ErrQuestionNotFound indicates a submitted question ID is invalid for the session.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSessionExists is returned by session stores when an ID is already taken.
	ErrSessionExists = errors.New("quiz session already exists")
	// ErrAnswerExists is returned by answer ledgers on a second write for the same question.
	ErrAnswerExists = errors.New("answer already recorded")

	ErrAlreadyStarted = errors.New("quiz already started")
	ErrQuizFinished   = errors.New("quiz already finished")
	ErrQuizFull       = errors.New("quiz is full")
	ErrNoParticipants = errors.New("quiz has no participants")
	ErrNotInProgress  = errors.New("quiz is not in progress")
	ErrNoQuestions    = errors.New("question bank has no questions")

	// ErrInvalidInput marks malformed intents (bad time values, empty ids).
	ErrInvalidInput = errors.New("invalid input")
)

// Kind classifies failures so callers can react without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindPrecondition
	KindValidation
	// KindUnavailable marks transient store failures; the caller may retry.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindValidation:
		return "validation"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is the typed failure returned by the quiz engine.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error of the given kind.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound wraps err as a KindNotFound failure.
func NotFound(op string, err error) error { return E(KindNotFound, op, err) }

// Precondition wraps err as a KindPrecondition failure.
func Precondition(op string, err error) error { return E(KindPrecondition, op, err) }

// Invalid builds a KindValidation failure with a formatted detail.
func Invalid(op, format string, args ...any) error {
	return E(KindValidation, op, fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...))
}

// Unavailable wraps a store failure as retryable.
func Unavailable(op string, err error) error { return E(KindUnavailable, op, err) }

// KindOf extracts the kind of err. Context deadlines count as unavailable.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUnavailable
	}
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrParticipantNotFound), errors.Is(err, ErrQuestionNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	}
	return KindInternal
}

// IsRetryable reports whether the failure is transient.
func IsRetryable(err error) bool {
	return KindOf(err) == KindUnavailable
}
