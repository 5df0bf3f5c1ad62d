// Package errors provides the error code taxonomy shared across clipsync.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a failure for retry and propagation decisions.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"
	ErrNotFound ErrorCode = "NOT_FOUND"
	ErrStore    ErrorCode = "STORE_ERROR"

	// Auth errors
	ErrUnauthenticated ErrorCode = "UNAUTHENTICATED"

	// Sync errors
	ErrOffline           ErrorCode = "OFFLINE"
	ErrTransient         ErrorCode = "TRANSIENT_FAILURE"
	ErrPayloadTooLarge   ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrAlreadyApplied    ErrorCode = "ALREADY_APPLIED"
	ErrRemoteNotFound    ErrorCode = "REMOTE_NOT_FOUND"
	ErrRemotePathMissing ErrorCode = "REMOTE_PATH_MISSING"
)

// AppError is an application error with a code, message and optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the error code from err or any error it wraps.
// Unclassified errors report ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err or any error it wraps carries the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Retryable reports whether a queued operation that failed with err should
// stay queued for a later sync pass. Permanent rejections and already-applied
// outcomes must not be retried. An auth failure is retryable: the token can
// be refreshed, and dropping the operation would lose the recorded intent.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrPayloadTooLarge, ErrAlreadyApplied, ErrNotFound:
		return false
	default:
		return true
	}
}
