package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the different failure classes of a harvest run
type ErrorType string

const (
	// Entry-scoped: converted to a skip by the pipeline
	ErrorTypeMissingReference  ErrorType = "missing_reference"
	ErrorTypeExtractionTimeout ErrorType = "extraction_timeout"
	ErrorTypePanelNotLoaded    ErrorType = "panel_not_loaded"
	ErrorTypeGeneration        ErrorType = "generation"

	// Run-scoped: abort the run and surface in the summary
	ErrorTypeListingUnavailable ErrorType = "listing_unavailable"
	ErrorTypeSinkUnavailable    ErrorType = "sink_unavailable"
	ErrorTypeStoreUnavailable   ErrorType = "store_unavailable"
	ErrorTypeDriverUnavailable  ErrorType = "driver_unavailable"
	ErrorTypeCancelled          ErrorType = "cancelled"

	ErrorTypeUnknown ErrorType = "unknown"
)

// Error is a typed harvest error
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same type, so sentinel values below work with errors.Is
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// New creates a typed error
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(errorType ErrorType, message string, cause error) *Error {
	return &Error{Type: errorType, Message: message, Cause: cause}
}

// Sentinels for errors.Is checks
var (
	ErrMissingReference   = New(ErrorTypeMissingReference, "entry has no detail reference")
	ErrExtractionTimeout  = New(ErrorTypeExtractionTimeout, "detail panel timed out")
	ErrPanelNotLoaded     = New(ErrorTypePanelNotLoaded, "detail panel not loaded")
	ErrGeneration         = New(ErrorTypeGeneration, "text generation failed")
	ErrListingUnavailable = New(ErrorTypeListingUnavailable, "listing container not found")
	ErrSinkUnavailable    = New(ErrorTypeSinkUnavailable, "sink rejected record")
	ErrStoreUnavailable   = New(ErrorTypeStoreUnavailable, "progress store unavailable")
	ErrDriverUnavailable  = New(ErrorTypeDriverUnavailable, "automation driver unavailable")
	ErrCancelled          = New(ErrorTypeCancelled, "run cancelled")
)

// TypeOf extracts the ErrorType of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsFatal reports whether an error type aborts the whole run
func IsFatal(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeListingUnavailable, ErrorTypeSinkUnavailable, ErrorTypeStoreUnavailable,
		ErrorTypeDriverUnavailable, ErrorTypeCancelled:
		return true
	case ErrorTypeMissingReference, ErrorTypeExtractionTimeout, ErrorTypePanelNotLoaded, ErrorTypeGeneration:
		return false
	default:
		return true
	}
}

// IsEntryScoped reports whether err should be absorbed by the per-entry state machine
func IsEntryScoped(err error) bool {
	if err == nil {
		return false
	}
	return !IsFatal(TypeOf(err))
}

// Reason returns the summary reason code for err
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return string(TypeOf(err))
}
