// Package ratelimit enforces "at most N calls per rolling period" budgets.
//
// This is a sliding window log, not a token bucket: a burst of N calls is
// admitted instantly and the (N+1)th caller sleeps until the oldest of the
// prior N admissions ages out of the window. Token buckets (x/time/rate)
// refill continuously and cannot express that shape.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"gameinsights-backend/internal/assert"
)

// Registry tracks one admission window per owner key. Windows are shared
// across goroutines; concurrent acquires against the same owner contend on
// the same budget.
type Registry struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewRegistry() *Registry {
	return &Registry{windows: map[string]*window{}}
}

// Acquire blocks until the caller is admitted under the owner's budget or
// ctx is cancelled. Passing a different calls/period for an owner discards
// that owner's window, timestamps never carry across configurations.
func (r *Registry) Acquire(ctx context.Context, owner string, calls int, period time.Duration) error {
	assert.NotEmptyStr(owner)
	assert.Positive(calls)
	if period <= 0 {
		panic("expected period to be positive")
	}

	return r.window(owner, calls, period).acquire(ctx)
}

func (r *Registry) window(owner string, calls int, period time.Duration) *window {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[owner]
	if !ok || w.calls != calls || w.period != period {
		w = &window{calls: calls, period: period}
		r.windows[owner] = w
	}
	return w
}

type window struct {
	calls  int
	period time.Duration

	// admit serializes admission so waiters are admitted in arrival
	// order, sync.Mutex hands off to the longest waiter under contention.
	admit sync.Mutex

	mu     sync.Mutex
	stamps []time.Time
}

func (w *window) acquire(ctx context.Context) error {
	w.admit.Lock()
	defer w.admit.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.mu.Lock()
		now := time.Now()
		w.prune(now)
		if len(w.stamps) < w.calls {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return nil
		}
		wait := w.stamps[0].Add(w.period).Sub(now)
		w.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// prune drops timestamps that have aged out of the trailing window.
// caller must hold w.mu.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.period)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
