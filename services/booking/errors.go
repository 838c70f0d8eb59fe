package booking

import (
	"errors"
	"fmt"

	"bookflow/models"
)

// Error codes for the transition taxonomy.
const (
	CodeIllegalTransition   = "ILLEGAL_TRANSITION"
	CodeMissingPrerequisite = "MISSING_PREREQUISITE"
	CodeConflictingState    = "CONFLICTING_STATE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeExternalProvider    = "EXTERNAL_PROVIDER_ERROR"
)

// TransitionError is the typed rejection of a requested transition.
type TransitionError struct {
	Code    string
	From    models.BookingState
	Event   models.BookingEvent
	Message string
}

func (e *TransitionError) Error() string {
	if e.From != "" || e.Event != "" {
		return fmt.Sprintf("%s: %s (from=%s event=%s)", e.Code, e.Message, e.From, e.Event)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether the caller should simply retry the same call.
func (e *TransitionError) Retryable() bool {
	return e.Code == CodeConcurrencyConflict
}

func NewIllegalTransition(from models.BookingState, event models.BookingEvent) error {
	return &TransitionError{
		Code:    CodeIllegalTransition,
		From:    from,
		Event:   event,
		Message: "event is not legal in the current state",
	}
}

func NewMissingPrerequisite(from models.BookingState, event models.BookingEvent, msg string) error {
	return &TransitionError{
		Code:    CodeMissingPrerequisite,
		From:    from,
		Event:   event,
		Message: msg,
	}
}

func NewConflictingState(bookingID string, event models.BookingEvent, msg string) error {
	return &TransitionError{
		Code:    CodeConflictingState,
		Event:   event,
		Message: fmt.Sprintf("booking %s: %s", bookingID, msg),
	}
}

func NewConcurrencyConflict(bookingID string) error {
	return &TransitionError{
		Code:    CodeConcurrencyConflict,
		Message: fmt.Sprintf("booking %s: concurrent transition in progress, retry", bookingID),
	}
}

func NewExternalProviderError(msg string, err error) error {
	return &TransitionError{
		Code:    CodeExternalProvider,
		Message: fmt.Sprintf("%s: %v", msg, err),
	}
}

// AsTransitionError unwraps err into a *TransitionError if possible.
func AsTransitionError(err error) (*TransitionError, bool) {
	var terr *TransitionError
	if errors.As(err, &terr) {
		return terr, true
	}
	return nil, false
}

// IsCode reports whether err is a TransitionError with the given code.
func IsCode(err error, code string) bool {
	terr, ok := AsTransitionError(err)
	return ok && terr.Code == code
}
