package extraction

import (
	"context"
	"sync"
	"time"
)

// BudgetGuard rate-limits LLM fallback invocations: at most N requests per
// rolling window.  Allow consumes a slot when it admits; a timed-out or
// schema-failed request still counts, the slot is taken before the call is
// made.  Exhaustion rejects, never queues.
type BudgetGuard interface {
	Allow(ctx context.Context) (bool, error)
}

// windowGuard is the in-process BudgetGuard: a mutex-protected ring of call
// timestamps.  The Redis-backed guard in infrastructure/database/redis
// replaces it when workers share a budget.
type windowGuard struct {
	mu       sync.Mutex
	window   time.Duration
	maxCalls int
	calls    []time.Time
	now      func() time.Time
}

// NewWindowGuard returns an in-memory rolling-window guard.
func NewWindowGuard(window time.Duration, maxCalls int) BudgetGuard {
	return &windowGuard{window: window, maxCalls: maxCalls, now: time.Now}
}

func (g *windowGuard) Allow(_ context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.window)
	kept := g.calls[:0]
	for _, t := range g.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.calls = kept

	if len(g.calls) >= g.maxCalls {
		return false, nil
	}
	g.calls = append(g.calls, g.now())
	return true, nil
}
