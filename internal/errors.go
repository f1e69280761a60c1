package internal

import "fmt"

// ErrorKind classifies an AppError for boundary translation. Business code
// never inspects HTTP statuses; it raises one of these kinds and the API
// layer maps it.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindSystem     ErrorKind = "system"
)

// AppError is the single error type crossing the service boundary. Details
// carries structured payload for actionable errors (e.g. the active-session
// summary on a begin-session conflict). Err holds the underlying cause for
// system errors; it is logged server-side and never serialized.
type AppError struct {
	Kind    ErrorKind   `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewValidationError(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func NewConflictError(msg string, details interface{}) *AppError {
	return &AppError{Kind: KindConflict, Message: msg, Details: details}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func NewSystemError(msg string, err error) *AppError {
	return &AppError{Kind: KindSystem, Message: msg, Err: err}
}
