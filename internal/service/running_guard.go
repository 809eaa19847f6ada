package service

import (
	"context"
	"sync"
)

// ExportedRunGuard is an exported alias so _test packages can test the guard.
type ExportedRunGuard = runGuard

// ─────────────────────────────────────────────────────────────
// runGuard: one merge at a time
// ─────────────────────────────────────────────────────────────

// runGuard admits one run per key. Watch and cron triggers share the merge
// key, so a file change during a scheduled run is turned away instead of
// racing on the output file. The zero value is ready to use.
type runGuard struct {
	mu   sync.Mutex
	done map[string]chan struct{} // closed when the holder unlocks
}

// TryLock claims key, or returns false if a run already holds it.
func (g *runGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.done[key]; held {
		return false
	}
	if g.done == nil {
		g.done = make(map[string]chan struct{})
	}
	g.done[key] = make(chan struct{})
	return true
}

// Unlock releases key. Unlocking a key that is not held is a no-op.
func (g *runGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, held := g.done[key]; held {
		close(ch)
		delete(g.done, key)
	}
}

// Running reports whether key is held.
func (g *runGuard) Running(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.done[key]
	return held
}

// WaitAll blocks until every run held at call time has unlocked, or ctx ends.
func (g *runGuard) WaitAll(ctx context.Context) {
	g.mu.Lock()
	pending := make([]chan struct{}, 0, len(g.done))
	for _, ch := range g.done {
		pending = append(pending, ch)
	}
	g.mu.Unlock()

	for _, ch := range pending {
		select {
		case <-ch:
		case <-ctx.Done():
			return
		}
	}
}
