package types

import "fmt"

// ErrorCode represents a unified error code across the pipeline.
type ErrorCode string

// Configuration and input error codes. These are fatal for the call (or for
// module construction) and are never retried internally.
const (
	ErrInvalidConfig      ErrorCode = "INVALID_CONFIG"
	ErrCollectionNotFound ErrorCode = "COLLECTION_NOT_FOUND"
	ErrInvalidQuery       ErrorCode = "INVALID_QUERY"
	ErrInvalidSignature   ErrorCode = "INVALID_SIGNATURE"
	ErrModuleNotFound     ErrorCode = "MODULE_NOT_FOUND"
	ErrMissingInput       ErrorCode = "MISSING_INPUT"
)

// Completion error codes.
const (
	ErrMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	ErrCompletionFailed  ErrorCode = "COMPLETION_FAILED"
)

// Storage error codes.
const (
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrDocumentInvalid  ErrorCode = "DOCUMENT_INVALID"
)

// Error represents a structured error with code, message, and metadata.
// Stage identifies which pipeline stage produced the error (transform,
// retrieval, rewrite, synthesis) so fatal failures point at the right place.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Stage   string    `json:"stage,omitempty"`
	Field   string    `json:"field,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = fmt.Sprintf("%s stage: %s", e.Stage, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithStage records the pipeline stage the error originated from.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithField records the signature or response field the error refers to.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// Returns an empty code when err is not a *types.Error.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if te, ok := err.(*Error); ok {
			return te.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
