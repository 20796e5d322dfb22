package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"circuit open", ErrCircuitOpen, true},
		{"rate limited", ErrRateLimited, true},
		{"context deadline", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"timeout pattern", stderrors.New("dial timeout"), true},
		{"invalid config", ErrInvalidConfig, false},
		{"classified transient", WrapTransient(stderrors.New("boom"), "Pool", "Encrypt", "op"), true},
		{"classified invalid", WrapInvalid(stderrors.New("boom"), "Pool", "Encrypt", "op"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrInitializationFailed))
	assert.True(t, IsFatal(ErrDataCorrupted))
	assert.True(t, IsFatal(WrapFatal(stderrors.New("boom"), "Pool", "New", "init")))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(ErrCircuitOpen))
}

func TestIsInvalid(t *testing.T) {
	assert.True(t, IsInvalid(ErrBoundsViolation))
	assert.True(t, IsInvalid(ErrInvalidData))
	assert.True(t, IsInvalid(WrapInvalid(stderrors.New("boom"), "Scaler", "Apply", "bounds")))
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsInvalid(WrapTransient(stderrors.New("boom"), "X", "Y", "z")))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.Equal(t, ErrorTransient, Classify(ErrCircuitOpen))
	assert.Equal(t, ErrorFatal, Classify(ErrInitializationFailed))
	assert.Equal(t, ErrorInvalid, Classify(ErrBoundsViolation))
	// Unknown errors default to transient to allow retry
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("mystery")))
}

func TestWrapFormat(t *testing.T) {
	base := stderrors.New("underlying")
	wrapped := Wrap(base, "Pool", "Encrypt", "balanced dispatch")

	require.Error(t, wrapped)
	assert.Equal(t, "Pool.Encrypt: balanced dispatch failed: underlying", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "C", "M", "a"))
	assert.NoError(t, WrapTransient(nil, "C", "M", "a"))
	assert.NoError(t, WrapInvalid(nil, "C", "M", "a"))
	assert.NoError(t, WrapFatal(nil, "C", "M", "a"))
}

func TestClassificationPreservedThroughChain(t *testing.T) {
	inner := WrapInvalid(ErrBoundsViolation, "Scaler", "Apply", "target check")
	outer := fmt.Errorf("controller tick: %w", inner)

	var ce *ClassifiedError
	require.True(t, stderrors.As(outer, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "Scaler", ce.Component)
	assert.True(t, stderrors.Is(outer, ErrBoundsViolation))
}

func TestRetryConfigShouldRetry(t *testing.T) {
	config := DefaultRetryConfig()

	assert.False(t, config.ShouldRetry(nil, 0))
	assert.False(t, config.ShouldRetry(ErrCircuitOpen, config.MaxRetries))
	assert.True(t, config.ShouldRetry(ErrCircuitOpen, 0))
	assert.False(t, config.ShouldRetry(ErrInvalidConfig, 0))

	// Restricted retryable set
	config.RetryableErrors = []error{ErrRateLimited}
	assert.True(t, config.ShouldRetry(ErrRateLimited, 0))
	assert.False(t, config.ShouldRetry(ErrCircuitOpen, 0))
}

func TestRetryConfigBackoffDelay(t *testing.T) {
	config := RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, config.BackoffDelay(0))
	assert.Equal(t, 200*time.Millisecond, config.BackoffDelay(1))
	assert.Equal(t, 400*time.Millisecond, config.BackoffDelay(2))
	// Capped at MaxDelay
	assert.Equal(t, 1*time.Second, config.BackoffDelay(10))
}

func TestToRetryConfig(t *testing.T) {
	rc := DefaultRetryConfig()
	cfg := rc.ToRetryConfig()

	assert.Equal(t, rc.MaxRetries+1, cfg.MaxAttempts)
	assert.Equal(t, rc.InitialDelay, cfg.InitialDelay)
	assert.Equal(t, rc.MaxDelay, cfg.MaxDelay)
	assert.True(t, cfg.AddJitter)
}
