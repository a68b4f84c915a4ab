package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between consecutive operations,
// incorporating optional jitter. The first call never blocks. A nil Limiter
// or one with a zero interval never blocks either, which is how tests run
// paced batches without sleeping.
// It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
	last     time.Time
}

// NewLimiter creates a limiter that spaces operations at least interval
// apart. Jitter must be between 0.0 and 1.0 and spreads each gap by
// +/- (jitter * interval).
func NewLimiter(interval time.Duration, jitter float64) *Limiter {
	if interval < 0 {
		interval = 0
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Limiter{
		interval: interval,
		jitter:   jitter,
	}
}

// Interval reports the configured minimum gap.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}

// Wait blocks until the minimum interval since the previous operation has
// elapsed, or until the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		gap := l.interval
		if l.jitter > 0 {
			jitterFactor := (rand.Float64() * 2) - 1.0 // -1.0 to 1.0
			gap += time.Duration(float64(l.interval) * l.jitter * jitterFactor)
		}

		if remaining := time.Until(l.last.Add(gap)); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	l.last = time.Now()
	return nil
}
