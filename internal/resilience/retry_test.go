package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep collects the backoff schedule instead of waiting.
func recordingSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestDoVal_SucceedsFirstTry(t *testing.T) {
	var slept []time.Duration
	cfg := RetryConfig{MaxAttempts: 6, Sleep: recordingSleep(&slept)}

	val, err := DoVal(context.Background(), cfg, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Empty(t, slept)
}

func TestDoVal_RetriesTransientThenSucceeds(t *testing.T) {
	var slept []time.Duration
	cfg := RetryConfig{
		MaxAttempts:    6,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     16 * time.Second,
		Multiplier:     2.0,
		Sleep:          recordingSleep(&slept),
	}

	calls := 0
	val, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("rate limited"), 429)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, slept)
}

func TestDoVal_BackoffSchedule(t *testing.T) {
	var slept []time.Duration
	cfg := RetryConfig{
		MaxAttempts:    6,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     16 * time.Second,
		Multiplier:     2.0,
		Sleep:          recordingSleep(&slept),
	}

	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		return 0, NewTransientError(errors.New("always failing"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, slept)
}

func TestDoVal_PermanentAbortsImmediately(t *testing.T) {
	var slept []time.Duration
	cfg := RetryConfig{MaxAttempts: 6, Sleep: recordingSleep(&slept)}

	calls := 0
	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, NewPermanentError(errors.New("missing content"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, slept)
}

func TestDoVal_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := DoVal(ctx, RetryConfig{MaxAttempts: 6, Sleep: recordingSleep(new([]time.Duration))}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("flaky"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := RetryConfig{
		MaxAttempts: 3,
		Sleep:       recordingSleep(new([]time.Duration)),
		OnRetry:     func(attempt int, _ error) { attempts = append(attempts, attempt) },
	}

	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		return 0, NewTransientError(errors.New("flaky"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_WrapsDoVal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 2, Sleep: recordingSleep(new([]time.Duration))}, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("validation failed")))
	assert.False(t, IsRetryable(NewPermanentError(errors.New("bad response"))))
	assert.True(t, IsRetryable(NewTransientError(errors.New("overloaded"), 529)))
	assert.True(t, IsRetryable(errors.New("read tcp: connection reset by peer")))
	assert.True(t, IsRetryable(errors.New("dial tcp: i/o timeout")))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(NewTransientError(errors.New("too many requests"), 429)))
	assert.False(t, IsRateLimited(NewTransientError(errors.New("bad gateway"), 502)))
	assert.False(t, IsRateLimited(errors.New("plain")))
}
