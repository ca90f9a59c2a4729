package errors

import (
	stderrors "errors"
	"fmt"
)

// IndexError is the structured error type for the indexing pipeline.
type IndexError struct {
	// Code is the unique error code (e.g., "ERR_101_STORE_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category derived from the code.
	Category Category

	// ItemID identifies the affected document, when there is one.
	ItemID string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *IndexError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works with IndexError values.
func (e *IndexError) Is(target error) bool {
	if t, ok := target.(*IndexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithItem attaches the affected item id. Returns the error for chaining.
func (e *IndexError) WithItem(id string) *IndexError {
	e.ItemID = id
	return e
}

// New creates a new IndexError with the given code and message.
func New(code, message string, cause error) *IndexError {
	return &IndexError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Cause:    cause,
	}
}

// Newf creates a new IndexError with a formatted message.
func Newf(code string, cause error, format string, args ...any) *IndexError {
	return New(code, fmt.Sprintf(format, args...), cause)
}

// CodeOf extracts the error code from err, walking the error chain.
// Returns the empty string when no IndexError is found.
func CodeOf(err error) string {
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

// IsFatal reports whether err should abort a synchronous submission.
// Store availability and apply failures escalate; everything else is
// reported and absorbed.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case ErrCodeStoreUnavailable, ErrCodeStoreLocked, ErrCodeApplyFailure:
		return true
	default:
		return false
	}
}
