package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeAuthentication, "token exchange rejected")
	assert.Equal(t, "authentication: token exchange rejected", err.Error())

	wrapped := Wrap(fmt.Errorf("connection reset"), ErrorTypeConnection, "fetch failed")
	assert.Equal(t, "connection: fetch failed: connection reset", wrapped.Error())
	assert.EqualError(t, wrapped.Unwrap(), "connection reset")
}

func TestWrapNil(t *testing.T) {
	require.Nil(t, Wrap(nil, ErrorTypeInternal, "ignored"))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		retryable bool
	}{
		{ErrorTypeTransient, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeConnection, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeAuthentication, false},
		{ErrorTypeMalformedResponse, false},
		{ErrorTypeCorruptState, false},
		{ErrorTypeConfig, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(New(tt.errType, "x")))
		})
	}

	// Plain errors are never retryable.
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrorTypeAuthentication, "401")))
	assert.False(t, IsFatal(New(ErrorTypeTransient, "503")))
	assert.False(t, IsFatal(fmt.Errorf("plain")))
}

func TestIsTypeThroughWrapping(t *testing.T) {
	inner := New(ErrorTypeMalformedResponse, "missing products array")
	outer := Wrap(inner, ErrorTypeInternal, "page decode")

	// errors.As walks the chain, so the outermost type wins.
	assert.True(t, IsType(outer, ErrorTypeInternal))
	assert.False(t, IsType(outer, ErrorTypeConfig))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeTransient, "503").
		WithDetail("status", 503).
		WithDetail("partition", "bakery")
	assert.Equal(t, 503, err.Details["status"])
	assert.Equal(t, "bakery", err.Details["partition"])
}
