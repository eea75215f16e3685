// Package lifecycle holds the job state machine rules: which jobs are
// eligible for claim, what a failed attempt transitions to, and how long a
// failed job waits before becoming claimable again.
package lifecycle

import (
	"math"
	"time"
)

// Defaults applied when the config table has no override.
const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 2.0
)

// Strategy computes the delay before a failed job becomes eligible again.
// Implementations must be safe for concurrent use.
type Strategy interface {
	// Delay returns the wait after attempt n, 1-indexed by the attempt
	// that just failed.
	Delay(attempt int) time.Duration
}

// Exponential waits Base^attempt seconds. The first failure (attempt 1)
// waits Base^1 seconds.
type Exponential struct {
	Base float64
}

func NewExponential(base float64) *Exponential {
	return &Exponential{Base: base}
}

func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	secs := math.Pow(e.Base, float64(attempt))
	return time.Duration(secs * float64(time.Second))
}

// Default returns the strategy used when no backoff_base is configured.
func Default() Strategy {
	return NewExponential(DefaultBackoffBase)
}
