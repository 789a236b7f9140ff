package transport

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// BackoffStrategy computes the delay before a given retry attempt.
// Attempt numbering starts at 1 for the first retry.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay as base * factor^(attempt-1), capped
// at maxDelay, with a jitter band to spread out synchronized retries.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	factor       float64
	jitter       float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewExponentialBackoff creates an exponential backoff strategy with 20%
// jitter.
func NewExponentialBackoff(initialDelay, maxDelay time.Duration, factor float64) *ExponentialBackoff {
	if factor <= 1 {
		factor = 2.0
	}
	return &ExponentialBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		factor:       factor,
		jitter:       0.2,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithJitter sets the jitter factor (0 disables jitter).
func (b *ExponentialBackoff) WithJitter(jitter float64) *ExponentialBackoff {
	b.jitter = jitter
	return b
}

// NextDelay implements BackoffStrategy.
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(b.initialDelay) * math.Pow(b.factor, float64(attempt-1))
	if b.jitter > 0 {
		b.mu.Lock()
		// Random value in [-jitter/2, +jitter/2] of the delay.
		delay += (b.rng.Float64() - 0.5) * delay * b.jitter
		b.mu.Unlock()
	}
	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ConstantBackoff waits the same delay before every retry.
type ConstantBackoff struct {
	delay time.Duration
}

// NewConstantBackoff creates a constant backoff strategy.
func NewConstantBackoff(delay time.Duration) *ConstantBackoff {
	return &ConstantBackoff{delay: delay}
}

// NextDelay implements BackoffStrategy.
func (b *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return b.delay
}

// NoBackoff retries immediately. Useful in tests.
type NoBackoff struct{}

// NewNoBackoff creates a strategy with zero delay between attempts.
func NewNoBackoff() *NoBackoff { return &NoBackoff{} }

// NextDelay implements BackoffStrategy.
func (*NoBackoff) NextDelay(int) time.Duration { return 0 }
