package ratelimit

import (
	"context"
	"sync"
	"time"
)

// guard pads every computed wait so an admission never lands exactly on the
// window boundary.
const guard = 100 * time.Millisecond

// Limiter is a sliding-window admission gate for outbound provider calls.
// It never rejects; callers are delayed until admission is safe and served
// in arrival order.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	period      time.Duration
	admissions  []time.Time

	// Injection points for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a limiter admitting at most maxRequests per period.
func New(maxRequests int, period time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		period:      period,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Acquire blocks until an admission slot is free, then records the
// admission. It returns early only when ctx is cancelled. Under heavy
// contention more than one window may have to elapse, so the check is
// re-run after every wait rather than sleeping once.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.admissions) < l.maxRequests {
			l.admissions = append(l.admissions, now)
			l.mu.Unlock()
			return nil
		}

		oldest := l.admissions[0]
		wait := l.period - now.Sub(oldest) + guard
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// prune drops admissions older than the window. Caller holds l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.period)
	keep := l.admissions[:0]
	for _, t := range l.admissions {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	l.admissions = keep
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
