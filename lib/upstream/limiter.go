package upstream

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between requests. A single
// Limiter is shared by every worker hitting the same upstream, so the
// request rate stays bounded no matter how wide the worker pool is.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func NewLimiter(minInterval time.Duration) *Limiter {
	if minInterval <= 0 {
		return nil
	}
	return &Limiter{interval: minInterval}
}

// Wait blocks until the caller is allowed to issue a request. Slots are
// handed out in call order; a nil Limiter never blocks.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	at := l.next
	if at.Before(now) {
		at = now
	}
	l.next = at.Add(l.interval)
	l.mu.Unlock()

	d := time.Until(at)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
