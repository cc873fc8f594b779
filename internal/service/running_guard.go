package service

import (
	"context"
	"sort"
	"sync"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = runningGuard

// ─────────────────────────────────────────────────────────────
// runningGuard — prevents concurrent runs of the same process
// ─────────────────────────────────────────────────────────────

// runningGuard ensures only one run of a given process id is in flight.
type runningGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks id as running. It returns false when id already runs.
func (g *runningGuard) TryLock(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[id]; ok {
		return false
	}
	g.running[id] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock marks id as finished. Must follow a successful TryLock.
func (g *runningGuard) Unlock(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, id)
	g.wg.Done()
}

// Running returns the ids currently running, sorted.
func (g *runningGuard) Running() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.running))
	for id := range g.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WaitAll blocks until every running process completes or ctx is done.
func (g *runningGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
