package model

import "fmt"

// ErrorKind classifies failures across the installation pipeline. The kind is
// what the orchestrator uses to decide phase transitions, callers match kinds
// with errors.Is against the sentinel values below.
type ErrorKind string

const (
	// ErrKindResourceExhaustion is returned when the pool cannot satisfy a request.
	ErrKindResourceExhaustion ErrorKind = "resource-exhaustion"
	// ErrKindContainer is returned on lifecycle or transfer failures against the runtime.
	ErrKindContainer ErrorKind = "container"
	// ErrKindExecution is returned when a command run failed at the stream level.
	ErrKindExecution ErrorKind = "execution"
	// ErrKindExecutionTimeout is returned when a command run exceeded its bound.
	ErrKindExecutionTimeout ErrorKind = "execution-timeout"
	// ErrKindScriptGeneration is returned when no template resolved or rendering failed.
	ErrKindScriptGeneration ErrorKind = "script-generation"
	// ErrKindValidation is returned when the security gate rejected a script or a scan failed.
	ErrKindValidation ErrorKind = "validation"
	// ErrKindIntegration is an orchestration-level error wrapping any of the above.
	ErrKindIntegration ErrorKind = "integration"
)

// Sentinel errors for kind matching with errors.Is.
var (
	ErrResourceExhaustion = &Error{Kind: ErrKindResourceExhaustion}
	ErrContainer          = &Error{Kind: ErrKindContainer}
	ErrExecution          = &Error{Kind: ErrKindExecution}
	ErrExecutionTimeout   = &Error{Kind: ErrKindExecutionTimeout}
	ErrScriptGeneration   = &Error{Kind: ErrKindScriptGeneration}
	ErrValidation         = &Error{Kind: ErrKindValidation}
	ErrIntegration        = &Error{Kind: ErrKindIntegration}
)

// Error is the single tagged error type used by all components.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError creates a new error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a new error of the given kind wrapping a cause.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind, so sentinel values work with
// errors.Is regardless of message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
