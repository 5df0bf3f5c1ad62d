package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrNotFound, "record missing")
	assert.Equal(t, "[NOT_FOUND] record missing", err.Error())

	wrapped := Wrap(ErrStore, "query failed", stderrors.New("disk io"))
	assert.Equal(t, "[STORE_ERROR] query failed: disk io", wrapped.Error())
}

func TestNewf(t *testing.T) {
	err := Newf(ErrNotFound, "record %s not found", "rec-1")
	assert.Equal(t, "[NOT_FOUND] record rec-1 not found", err.Error())
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(ErrTransient, "request failed", cause)
	assert.True(t, stderrors.Is(err, cause))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrOffline, CodeOf(New(ErrOffline, "unreachable")))
	assert.Equal(t, ErrInternal, CodeOf(stderrors.New("plain")))

	// Codes survive fmt wrapping.
	wrapped := fmt.Errorf("sync pass: %w", New(ErrOffline, "unreachable"))
	assert.Equal(t, ErrOffline, CodeOf(wrapped))
}

func TestIs(t *testing.T) {
	err := New(ErrRemoteNotFound, "gone")
	assert.True(t, Is(err, ErrRemoteNotFound))
	assert.False(t, Is(err, ErrNotFound))
	assert.False(t, Is(stderrors.New("plain"), ErrRemoteNotFound))
	assert.False(t, Is(nil, ErrRemoteNotFound))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(ErrTransient, "timeout")))
	assert.True(t, Retryable(New(ErrRemotePathMissing, "no path")))
	assert.True(t, Retryable(stderrors.New("unclassified")))
	// An expired token is recoverable; the operation must survive it.
	assert.True(t, Retryable(New(ErrUnauthenticated, "token expired")))

	assert.False(t, Retryable(New(ErrPayloadTooLarge, "too big")))
	assert.False(t, Retryable(New(ErrAlreadyApplied, "done")))
	assert.False(t, Retryable(New(ErrNotFound, "missing")))
}
