package scheduler

import "time"

// Backoff computes retry delays for unattended runs. The delay after the
// n-th consecutive failure is base*2^(n-1), capped at twice the base and at
// an absolute ceiling, so a 15m base yields 15m, 30m, 30m, ... A success
// resets the sequence.
type Backoff struct {
	base     time.Duration
	ceiling  time.Duration
	failures int
}

func NewBackoff(base, ceiling time.Duration) *Backoff {
	return &Backoff{base: base, ceiling: ceiling}
}

// Fail records one failure and returns the delay before the next attempt.
func (b *Backoff) Fail() time.Duration {
	b.failures++
	delay := b.base
	if b.failures > 1 {
		delay = 2 * b.base
	}
	if b.ceiling > 0 && delay > b.ceiling {
		delay = b.ceiling
	}
	return delay
}

// Reset clears the failure streak after a success.
func (b *Backoff) Reset() {
	b.failures = 0
}

// Failures returns the current consecutive failure count.
func (b *Backoff) Failures() int {
	return b.failures
}
