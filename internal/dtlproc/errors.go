package dtlproc

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so the surrounding service
// layer can map them to a caller-facing status without parsing messages.
type ErrorKind int

const (
	// KindInput marks errors that are the caller's fault: empty batch,
	// missing directory, nothing recognized.
	KindInput ErrorKind = iota
	// KindConfig marks fatal environment or configuration problems,
	// such as an unsupported rendering format.
	KindConfig
	// KindInternal marks everything else.
	KindInternal
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "INPUT"
	case KindConfig:
		return "CONFIG"
	case KindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// PipelineError is a classified error with an optional cause.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface
func (pe *PipelineError) Error() string {
	if pe.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", pe.Kind, pe.Message, pe.Cause)
	}
	return fmt.Sprintf("[%s] %s", pe.Kind, pe.Message)
}

// Unwrap returns the underlying cause error
func (pe *PipelineError) Unwrap() error {
	return pe.Cause
}

// NewInputError creates a caller-fault error.
func NewInputError(format string, args ...any) *PipelineError {
	return &PipelineError{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

// NewConfigError creates a fatal configuration error.
func NewConfigError(format string, args ...any) *PipelineError {
	return &PipelineError{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// NewInternalError wraps an unexpected failure with context.
func NewInternalError(cause error, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsInputError reports whether err is a caller-fault pipeline error.
func IsInputError(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Kind == KindInput
}
