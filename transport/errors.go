package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrRetriesExhausted wraps the last failure after all attempts are spent.
var ErrRetriesExhausted = errors.New("transport retries exhausted")

// ErrUnknownKind is returned by the factory for an unregistered kind.
var ErrUnknownKind = errors.New("unknown transport kind")

// Error is the failure surfaced by a transport after its retry policy has
// run its course.
type Error struct {
	Kind      Kind
	ServerID  string
	Attempts  int
	Exhausted bool
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("transport %s to server %s failed after %d attempt(s): %v",
		e.Kind, e.ServerID, e.Attempts, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrRetriesExhausted) match transports that ran
// out of retry budget, as opposed to aborting on a non-retryable failure.
func (e *Error) Is(target error) bool {
	return target == ErrRetriesExhausted && e.Exhausted
}

// StatusError is a server-level failure reported via the transport, e.g.
// an HTTP 5xx. Retryable when the status class indicates a transient
// server problem.
type StatusError struct {
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.Code)
}

// IsRetryable classifies a single-attempt failure: connection errors,
// timeouts and 5xx-equivalents are retried; everything else aborts
// immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 && statusErr.Code <= 599
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
