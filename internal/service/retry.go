package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

const (
	defaultMaxAttempts = 3
	maxBackoffShift    = 62
)

// RetryPolicy bounds optimistic-concurrency retries.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy is three attempts starting at a 10ms window.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: defaultMaxAttempts, BaseDelay: 10 * time.Millisecond}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return defaultMaxAttempts
	}
	return p.MaxAttempts
}

// backoff returns a full-jitter delay in [0, base * 2^(attempt-1)).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	} else if shift > maxBackoffShift {
		shift = maxBackoffShift
	}

	multiplier := int64(1) << shift
	ceiling := int64(p.BaseDelay)
	if ceiling > math.MaxInt64/multiplier {
		ceiling = math.MaxInt64
	} else {
		ceiling *= multiplier
	}

	return time.Duration(rand.Int64N(ceiling))
}

// sleepWithContext waits for d unless ctx finishes first.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}
