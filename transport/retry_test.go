package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgate/mcpgate/discovery"
)

func testOptions(maxRetries int) Options {
	return Options{
		Timeout:    time.Second,
		MaxRetries: maxRetries,
		Backoff:    NewNoBackoff(),
	}
}

func testServer() *discovery.ServerInfo {
	return &discovery.ServerInfo{ID: "s1", Endpoint: "http://s1.example"}
}

func TestDoWithRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	raw, err := DoWithRetry(context.Background(), KindHTTP, testServer(), testOptions(3),
		func(ctx context.Context) ([]byte, error) {
			calls++
			return []byte("ok"), nil
		})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), raw)
	assert.Equal(t, 1, calls)
}

func TestDoWithRetryRecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	raw, err := DoWithRetry(context.Background(), KindHTTP, testServer(), testOptions(3),
		func(ctx context.Context) ([]byte, error) {
			calls++
			if calls < 3 {
				return nil, &StatusError{Code: 503}
			}
			return []byte("ok"), nil
		})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), raw)
	assert.Equal(t, 3, calls)
}

func TestDoWithRetryExhaustsBudget(t *testing.T) {
	// MaxRetries=2 means exactly 3 attempts: the initial one plus two
	// retries.
	calls := 0
	_, err := DoWithRetry(context.Background(), KindHTTP, testServer(), testOptions(2),
		func(ctx context.Context) ([]byte, error) {
			calls++
			return nil, &StatusError{Code: 502}
		})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrRetriesExhausted)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 3, terr.Attempts)
	assert.True(t, terr.Exhausted)
	assert.Equal(t, "s1", terr.ServerID)
}

func TestDoWithRetryAbortsOnNonRetryable(t *testing.T) {
	calls := 0
	fatal := errors.New("bad credentials")
	_, err := DoWithRetry(context.Background(), KindHTTP, testServer(), testOptions(5),
		func(ctx context.Context) ([]byte, error) {
			calls++
			return nil, fatal
		})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, fatal)
	// A non-retryable abort is not a budget exhaustion.
	assert.NotErrorIs(t, err, ErrRetriesExhausted)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 1, terr.Attempts)
	assert.False(t, terr.Exhausted)
}

func TestDoWithRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := Options{
		Timeout:    time.Second,
		MaxRetries: 5,
		Backoff:    NewConstantBackoff(time.Hour),
	}
	calls := 0
	start := time.Now()
	_, err := DoWithRetry(ctx, KindHTTP, testServer(), opts,
		func(attemptCtx context.Context) ([]byte, error) {
			calls++
			cancel()
			return nil, &StatusError{Code: 500}
		})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	// The hour-long backoff must not be waited out.
	assert.Less(t, time.Since(start), time.Second)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&StatusError{Code: 500}))
	assert.True(t, IsRetryable(&StatusError{Code: 503}))
	assert.False(t, IsRetryable(&StatusError{Code: 400}))
	assert.False(t, IsRetryable(&StatusError{Code: 404}))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(errors.New("some app error")))
	assert.False(t, IsRetryable(nil))
}

func TestExponentialBackoffGrowsAndCaps(t *testing.T) {
	b := NewExponentialBackoff(100*time.Millisecond, time.Second, 2.0).WithJitter(0)

	assert.Equal(t, 100*time.Millisecond, b.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, b.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, b.NextDelay(3))
	// Capped at maxDelay.
	assert.Equal(t, time.Second, b.NextDelay(10))
	assert.Equal(t, time.Duration(0), b.NextDelay(0))
}

func TestExponentialBackoffJitterStaysInBand(t *testing.T) {
	b := NewExponentialBackoff(100*time.Millisecond, time.Minute, 2.0)
	for i := 0; i < 50; i++ {
		d := b.NextDelay(1)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}

func TestConstantAndNoBackoff(t *testing.T) {
	c := NewConstantBackoff(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, c.NextDelay(1))
	assert.Equal(t, 50*time.Millisecond, c.NextDelay(7))
	assert.Equal(t, time.Duration(0), c.NextDelay(0))

	assert.Equal(t, time.Duration(0), NewNoBackoff().NextDelay(3))
}
