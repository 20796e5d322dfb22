package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	failure := errors.New("persistent failure")
	err := Do(context.Background(), cfg, func() error {
		calls++
		return failure
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.Is(err, failure))
}

func TestDoNonRetryableFailsImmediately(t *testing.T) {
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Millisecond}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return NonRetryable(errors.New("bad input"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsNonRetryable(err))
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, func() error {
			calls++
			return errors.New("keep failing")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, calls, 10)
}

func TestDoInvalidConfig(t *testing.T) {
	err := Do(context.Background(), Config{InitialDelay: -1}, func() error { return nil })
	assert.Error(t, err)

	err = Do(context.Background(), Config{InitialDelay: time.Second, MaxDelay: time.Millisecond}, func() error { return nil })
	assert.Error(t, err)
}

func TestDoWithResult(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	result, err := DoWithResult(context.Background(), cfg, func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("not yet")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 2, calls)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, 10, Quick().MaxAttempts)
	assert.Equal(t, 30, Persistent().MaxAttempts)
}
