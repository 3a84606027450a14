package domain

import "time"

// RetryPolicy bounds retries of external calls (classification, authority
// lookup). Only transient failures are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// Delay is the wait before the second attempt.
	Delay time.Duration

	// Multiplier is applied to the delay after each retry. 1 gives a fixed delay.
	Multiplier float64

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the defaults used for external calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
		Multiplier:  2.0,
		MaxDelay:    30 * time.Second,
	}
}

// Attempts returns MaxAttempts, never less than 1.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns the wait after the given failed attempt (1-indexed).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.Delay <= 0 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delay := float64(p.Delay)
	for i := 1; i < attempt; i++ {
		delay *= multiplier
		if p.MaxDelay > 0 && delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(delay) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(delay)
}
