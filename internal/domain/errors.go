package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Match with errors.Is.
var (
	ErrNetwork    = errors.New("network failure")
	ErrValidation = errors.New("validation failed")
	ErrRejected   = errors.New("rejected by backend")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("not allowed for your role")
	ErrNoCalendar = errors.New("no calendar selected")
	ErrCanceled   = errors.New("superseded by a newer request")
)

// APIError is a failed backend call
type APIError struct {
	Op      string // e.g. "list events"
	Kind    error  // one of the failure kinds above
	Status  int    // HTTP status, 0 if the request never completed
	Message string // human-readable message, taken from the response when available
	Err     error  // underlying transport error, if any
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %v (status %d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, msg)
}

// Is matches the failure kind. Any error response from the backend also
// matches ErrRejected.
func (e *APIError) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return target == ErrRejected && e.Status >= 400
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text to show to the user
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
