package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure so callers can decide whether it is fatal,
// retryable, or user-correctable.
type Code string

const (
	CodeConfiguration    Code = "CONFIGURATION"     // 500, fatal at startup
	CodeComposerFailure  Code = "COMPOSER_FAILURE"  // 502, retryable
	CodeSendFailure      Code = "SEND_FAILURE"      // 502, retryable, draft preserved
	CodeNoAttachment     Code = "NO_ATTACHMENT"     // 422, user-correctable
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE" // 503
	CodeNotFound         Code = "NOT_FOUND"         // 404
	CodeInvalidRequest   Code = "INVALID_REQUEST"   // 400
)

// Error is a structured error with a code and an HTTP status. Wrapped
// causes stay reachable through errors.Unwrap.
type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewConfiguration reports missing or invalid startup configuration.
func NewConfiguration(msg string) *Error {
	return &Error{Code: CodeConfiguration, Status: 500, Message: msg}
}

// NewComposerFailure wraps a failed or unusable language-model call.
func NewComposerFailure(err error) *Error {
	return &Error{Code: CodeComposerFailure, Status: 502, Message: "email composition failed", Err: err}
}

// NewSendFailure wraps a mail transport rejection. The draft survives so
// the user can retry without re-composing.
func NewSendFailure(err error) *Error {
	return &Error{Code: CodeSendFailure, Status: 502, Message: "mail transport failed", Err: err}
}

// NewNoAttachment reports a send attempted with an empty attachment list.
func NewNoAttachment() *Error {
	return &Error{Code: CodeNoAttachment, Status: 422, Message: "at least one attachment (your CV) is required before sending"}
}

// NewStoreUnavailable wraps an unreachable persistence layer. Writes must
// surface this rather than pretend success.
func NewStoreUnavailable(err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Status: 503, Message: "profile store unavailable", Err: err}
}

// NewNotFound reports a missing resource.
func NewNotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Status: 404, Message: what + " not found"}
}

// NewInvalidRequest reports a malformed request.
func NewInvalidRequest(msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Status: 400, Message: msg}
}

// Is reports whether err is (or wraps) an Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 500
}
