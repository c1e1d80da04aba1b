// Package errors provides error types and handling for serpdriver.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorType categorizes errors for handling decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// Browser represents browser launch/CDP failures. Fatal to the process
	// when no browser could be obtained at all.
	Browser
	// Navigation represents page navigation failures.
	Navigation
	// Captcha represents a detected CAPTCHA challenge. Recoverable via the
	// visible-mode retry path, never surfaced to callers directly.
	Captcha
	// NoInput means no query input element could be located on the page.
	NoInput
	// NoResults means no results container appeared before the deadline.
	NoResults
	// State represents persistence failures (sidecar, snapshot, history).
	// Always logged, never fatal.
	State
	// Timeout represents deadline-exceeded failures.
	Timeout
	// Cancelled represents context cancellation.
	Cancelled
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case Browser:
		return "browser"
	case Navigation:
		return "navigation"
	case Captcha:
		return "captcha"
	case NoInput:
		return "no_input"
	case NoResults:
		return "no_results"
	case State:
		return "state"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsRecoverable returns whether errors of this type allow the search to be
// retried within the same run (visible-mode recovery).
func (t ErrorType) IsRecoverable() bool {
	return t == Captcha
}

// SearchError represents a categorized failure of a search run.
type SearchError struct {
	Type      ErrorType
	Query     string
	Operation string
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error during %s for %q: %s (caused by: %v)",
			e.Type.String(), e.Operation, e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error during %s for %q: %s",
		e.Type.String(), e.Operation, e.Query, e.Message)
}

// Unwrap returns the underlying error.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target.
func (e *SearchError) Is(target error) bool {
	t, ok := target.(*SearchError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// New creates a new SearchError.
func New(errType ErrorType, query, operation, message string, cause error) *SearchError {
	return &SearchError{
		Type:      errType,
		Query:     query,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewBrowserError creates a browser error.
func NewBrowserError(query, operation string, cause error) *SearchError {
	return New(Browser, query, operation, "browser operation failed", cause)
}

// NewNavigationError creates a navigation error.
func NewNavigationError(query, url string, cause error) *SearchError {
	return New(Navigation, query, "navigate", fmt.Sprintf("failed to reach %s", url), cause)
}

// NewCaptchaError creates a captcha error for the given challenge URL.
func NewCaptchaError(query, url string) *SearchError {
	return New(Captcha, query, "captcha_check", fmt.Sprintf("challenge page at %s", url), nil)
}

// NewNoInputError creates an error for a missing query input element.
func NewNoInputError(query string) *SearchError {
	return New(NoInput, query, "locate_input", "could not find search input element", nil)
}

// NewNoResultsError creates an error for a missing results container.
func NewNoResultsError(query string) *SearchError {
	return New(NoResults, query, "wait_results", "could not find search result elements", nil)
}

// NewStateError creates a persistence error.
func NewStateError(query, operation string, cause error) *SearchError {
	return New(State, query, operation, "state persistence failed", cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(query, operation string, cause error) *SearchError {
	return New(Timeout, query, operation, "operation timed out", cause)
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(query, operation string) *SearchError {
	return New(Cancelled, query, operation, "operation cancelled", nil)
}

// Categorize determines the error type from a generic error.
func Categorize(err error, query string) *SearchError {
	if err == nil {
		return nil
	}

	// Already a SearchError
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr
	}

	if errors.Is(err, context.Canceled) {
		return NewCancelledError(query, "search")
	}

	if isTimeout(err) {
		return NewTimeoutError(query, "search", err)
	}

	return New(Unknown, query, "search", err.Error(), err)
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context deadline")
}

// IsCaptcha checks if an error is a detected challenge.
func IsCaptcha(err error) bool {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr.Type == Captcha
	}
	return false
}

// IsFatalToRun reports whether the error should terminate the current run
// with a diagnostic response (as opposed to being retried or ignored).
func IsFatalToRun(err error) bool {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		switch searchErr.Type {
		case Captcha, State:
			return false
		}
		return true
	}
	return true
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr.Type
	}
	return Unknown
}
