package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels wrapped by ReferenceError so callers can match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrAmbiguous    = errors.New("ambiguous reference")
	ErrKindMismatch = errors.New("kind mismatch")
)

// ValidationError reports a malformed spec or a violated construction invariant.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ParameterError reports an invalid combination or format of user-supplied parameters.
type ParameterError struct {
	Message string
}

func (e *ParameterError) Error() string { return e.Message }

// ReferenceReason classifies a ReferenceError.
type ReferenceReason string

const (
	ReasonNotFound     ReferenceReason = "not_found"
	ReasonAmbiguous    ReferenceReason = "ambiguous"
	ReasonKindMismatch ReferenceReason = "kind_mismatch"
)

// ReferenceError reports a name that could not be turned into exactly one
// backend record.
type ReferenceError struct {
	Reason ReferenceReason
	Entity string // e.g. "agent", "tool", "knowledge base", "connection"
	Name   string
	Detail string
}

func (e *ReferenceError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonNotFound:
		msg = fmt.Sprintf("failed to find %s '%s'", e.Entity, e.Name)
	case ReasonAmbiguous:
		msg = fmt.Sprintf("multiple %ss with the name '%s' found, cannot resolve reference", e.Entity, e.Name)
	case ReasonKindMismatch:
		msg = fmt.Sprintf("%s '%s' already exists with a different kind", e.Entity, e.Name)
	default:
		msg = fmt.Sprintf("invalid reference to %s '%s'", e.Entity, e.Name)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ReferenceError) Unwrap() error {
	switch e.Reason {
	case ReasonNotFound:
		return ErrNotFound
	case ReasonAmbiguous:
		return ErrAmbiguous
	case ReasonKindMismatch:
		return ErrKindMismatch
	}
	return nil
}

// BatchError aggregates every violation found by a validation pass so the
// user sees all of them at once.
type BatchError struct {
	Summary string
	Errs    []error
}

func (e *BatchError) Error() string {
	lines := make([]string, 0, len(e.Errs)+1)
	lines = append(lines, e.Summary)
	for _, err := range e.Errs {
		lines = append(lines, "  - "+err.Error())
	}
	return strings.Join(lines, "\n")
}

func (e *BatchError) Unwrap() []error { return e.Errs }

// NewBatchError returns nil when errs is empty.
func NewBatchError(summary string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &BatchError{Summary: summary, Errs: errs}
}

// SynthesisError reports an OpenAPI document that cannot produce the requested tool.
type SynthesisError struct {
	Message   string
	Available []string
}

func (e *SynthesisError) Error() string {
	if len(e.Available) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s. Available: %s", e.Message, strings.Join(e.Available, ", "))
}

// HTTPError carries the status and body of an unexpected HTTP response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
