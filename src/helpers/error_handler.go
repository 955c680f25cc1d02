package helpers

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DashboardError struct {
	Message string
	Cause   error
}

func (e *DashboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// Distinct error types for the stages of a refresh, for errors.As
type ConfigurationError struct{ DashboardError }
type FetchError struct{ DashboardError }
type DecodeError struct{ DashboardError }
type RenderError struct{ DashboardError }
type ArchiveError struct{ DashboardError }
type DatabaseError struct{ DashboardError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewFetchError(msg string, cause error) error {
	return &FetchError{DashboardError{Message: msg, Cause: cause}}
}

func NewDecodeError(msg string, cause error) error {
	return &DecodeError{DashboardError{Message: msg, Cause: cause}}
}

func NewRenderError(msg string, cause error) error {
	return &RenderError{DashboardError{Message: msg, Cause: cause}}
}

func NewArchiveError(msg string, cause error) error {
	return &ArchiveError{DashboardError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{DashboardError{Message: msg, Cause: cause}}
}

func NewConfigurationError(msg string, cause error) error {
	return &ConfigurationError{DashboardError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// Stage names the refresh stage an error came from, for log lines.
func Stage(err error) string {
	var fe *FetchError
	var de *DecodeError
	var re *RenderError
	var ae *ArchiveError
	switch {
	case errors.As(err, &fe):
		return "fetch"
	case errors.As(err, &de):
		return "decode"
	case errors.As(err, &re):
		return "render"
	case errors.As(err, &ae):
		return "archive"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Panic recovery
// -----------------------------------------------------------------------------

// Guard runs fn and converts a panic into a RenderError.
func Guard(operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewRenderError(fmt.Sprintf("%s sink panicked", operation), fmt.Errorf("%v", r))
		}
	}()
	return fn()
}
