package domain

import (
	"errors"
	"fmt"
)

// ErrNoMatch is the normal outcome when no registered pattern
// recognized any candidate URL, including after the redirect chase
// was exhausted.
var ErrNoMatch = errors.New("no registered pattern matched")

// PlatformDisabledError is returned when a candidate matched a
// platform that is in the configured disabled set. It is reported
// distinctly from ErrNoMatch so callers can message the user.
type PlatformDisabledError struct {
	Platform Platform
}

func (e *PlatformDisabledError) Error() string {
	return fmt.Sprintf("platform %s is disabled", e.Platform.Name)
}

// ExtractionError is returned when a handler ran but could not produce
// a result: upstream API error, unexpected response shape or missing
// required credentials. The core never retries it.
type ExtractionError struct {
	Platform Platform
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed on %s: %v", e.Platform.Name, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// NewExtractionError wraps a handler failure with its platform
func NewExtractionError(platform Platform, format string, args ...any) *ExtractionError {
	return &ExtractionError{Platform: platform, Cause: fmt.Errorf(format, args...)}
}
