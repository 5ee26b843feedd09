package pipeline

import "time"

// RetryPolicy bounds attempts for a stage. Only transient failures are
// retried; the taxonomy decides what is transient (see IsTransient).
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
	// Timeout bounds the stage's whole executing phase, attempts and
	// backoff included. Zero means no timeout.
	Timeout time.Duration
}

// normalized applies defaults: at least one attempt, non-negative backoff.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}
