package errors

import (
	"errors"
	"fmt"
)

// Standard application errors
var (
	ErrProcessNotFound    = errors.New("process not found")
	ErrInvalidDescription = errors.New("invalid process description")
	ErrUnknownComponent   = errors.New("unknown component")
	ErrAlreadyRunning     = errors.New("process is already running")
	ErrNoProcesses        = errors.New("process description defines no processes")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeDescription ErrorType = "description"
	ErrorTypeComponent   ErrorType = "component"
	ErrorTypeRun         ErrorType = "run"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError of the same Type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewDescriptionError reports a problem loading or validating a process
// description.
func NewDescriptionError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeDescription, Message: message, Err: err}
}

// NewComponentError reports a component that could not be created or
// initialized.
func NewComponentError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeComponent, Message: message, Err: err}
}

// NewRunError reports a failure while records were flowing.
func NewRunError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeRun, Message: message, Err: err}
}

// NewStorageError reports a run history failure.
func NewStorageError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeStorage, Message: message, Err: err}
}

// UserFriendlyError returns a message suitable for a terminal.
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		detail := appErr.Message
		if appErr.Err != nil {
			detail = fmt.Sprintf("%s (%v)", appErr.Message, appErr.Err)
		}
		switch appErr.Type {
		case ErrorTypeDescription:
			return "Process description error: " + detail
		case ErrorTypeComponent:
			return "Component error: " + detail
		case ErrorTypeRun:
			return "Run failed: " + detail
		case ErrorTypeStorage:
			return "Run history error: " + detail
		default:
			return "Error: " + detail
		}
	}

	switch {
	case errors.Is(err, ErrProcessNotFound):
		return "Error: no process with that id. Run 'rite list' to see the available processes."
	case errors.Is(err, ErrAlreadyRunning):
		return "Error: the process is already running."
	case errors.Is(err, ErrNoProcesses):
		return "Error: the process description defines no processes."
	}
	return fmt.Sprintf("Error: %v", err)
}

// Is re-exports errors.Is so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As re-exports errors.As.
func As(err error, target any) bool { return errors.As(err, target) }
