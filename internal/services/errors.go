package services

import (
	"errors"
	"fmt"
)

type ScoringErrorKind string

const (
	KindNoStructuredOutput ScoringErrorKind = "no_structured_output"
	KindMalformedOutput    ScoringErrorKind = "malformed_output"
	KindTimeout            ScoringErrorKind = "timeout"
	KindTransientProvider  ScoringErrorKind = "transient_provider"
	KindProvider           ScoringErrorKind = "provider"
)

// ScoringError is returned for any failure between prompt and parsed result.
type ScoringError struct {
	Kind    ScoringErrorKind
	Message string
	Cause   error
}

func (e *ScoringError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scoring error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("scoring error (%s): %s", e.Kind, e.Message)
}

func (e *ScoringError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the call may succeed if repeated.
func (e *ScoringError) Retryable() bool {
	return e.Kind == KindTransientProvider
}

func newScoringError(kind ScoringErrorKind, msg string, cause error) *ScoringError {
	return &ScoringError{Kind: kind, Message: msg, Cause: cause}
}

// ScoringErrorKindOf returns the kind of a wrapped ScoringError, or "" when err is not one.
func ScoringErrorKindOf(err error) ScoringErrorKind {
	var se *ScoringError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// ValidationError reports caller input that can never be processed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}
