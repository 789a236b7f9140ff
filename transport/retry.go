package transport

import (
	"context"
	"time"

	"github.com/mcpgate/mcpgate/discovery"
)

// AttemptFunc performs one send attempt under the per-attempt timeout.
type AttemptFunc func(ctx context.Context) ([]byte, error)

// DoWithRetry runs fn with the options' retry policy: each attempt gets
// its own timeout, retryable failures are retried up to MaxRetries times
// with backoff, and only the final failure is surfaced, wrapped in a
// transport Error. Concrete transports share this one policy so retry
// semantics stay uniform across kinds.
func DoWithRetry(ctx context.Context, kind Kind, server *discovery.ServerInfo, opts Options, fn AttemptFunc) ([]byte, error) {
	opts = opts.normalized()

	var lastErr error
	attempts := opts.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := opts.Backoff.NextDelay(attempt)
			opts.Logger.Debug("retrying request",
				"server_id", server.ID,
				"attempt", attempt+1,
				"delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &Error{Kind: kind, ServerID: server.ID, Attempts: attempt, Cause: ctx.Err()}
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		raw, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, &Error{Kind: kind, ServerID: server.ID, Attempts: attempt + 1, Cause: err}
		}
	}
	return nil, &Error{Kind: kind, ServerID: server.ID, Attempts: attempts, Exhausted: true, Cause: lastErr}
}
