// Package core holds the domain types shared across the engine: items,
// events, credentials, and tool descriptors.
package core

import "fmt"

// ErrorKind classifies engine-level failures per the error taxonomy.
type ErrorKind string

const (
	KindInvalidInput     ErrorKind = "invalid_input"
	KindNotAuthenticated ErrorKind = "not_authenticated"
	KindAuthExpired      ErrorKind = "auth_expired"
	KindAuthTransient    ErrorKind = "auth_transient"
	KindLockTimeout      ErrorKind = "lock_timeout"
	KindCorruptSession   ErrorKind = "corrupt_session_line"
	KindUnpairedTool     ErrorKind = "unpaired_tool_call"
	KindPathValidation   ErrorKind = "path_validation"
	KindToolFailure      ErrorKind = "tool_failure"
	KindModelTransient   ErrorKind = "model_transient"
	KindModelFatal       ErrorKind = "model_fatal"
	KindTurnCapExceeded  ErrorKind = "turn_cap_exceeded"
	KindCancelled        ErrorKind = "cancelled"
)

// EngineError is the concrete error type carried by Error events and
// returned from engine operations. It always has a Kind from the taxonomy.
type EngineError struct {
	Kind   ErrorKind
	Detail string
	Cause  error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *EngineError) Unwrap() error { return e.Cause }

// NewError builds an EngineError with the given kind and formatted detail.
func NewError(kind ErrorKind, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WrapError builds an EngineError wrapping an underlying cause.
func WrapError(kind ErrorKind, cause error, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Detail: fmt.Sprintf(format, args...), Cause: cause}
}
