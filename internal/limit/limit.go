// Package limit implements the model-call kill switch: a monotonic
// per-run counter with a hard ceiling on attempted calls.
package limit

import "sync"

// Guard counts model call attempts per run and reports when the
// configured ceiling is crossed. A ceiling of zero or less disables the
// guard. The counter is never decremented: a blocked call still counts
// as an attempt.
type Guard struct {
	max    int
	mu     sync.Mutex
	counts map[string]int
}

// NewGuard creates a Guard with the given ceiling.
func NewGuard(maxCalls int) *Guard {
	return &Guard{
		max:    maxCalls,
		counts: make(map[string]int),
	}
}

// Enabled reports whether the guard has a ceiling configured.
func (g *Guard) Enabled() bool {
	return g.max > 0
}

// IncrementAndCheck records one attempted call for the run and reports
// the new count plus whether it crossed the ceiling. The increment is
// the atomic act that decides exceed/no-exceed: under concurrent calls
// exactly one caller observes the boundary-crossing value.
func (g *Guard) IncrementAndCheck(runID string) (count int, exceeded bool) {
	g.mu.Lock()
	g.counts[runID]++
	count = g.counts[runID]
	g.mu.Unlock()

	if !g.Enabled() {
		return count, false
	}
	return count, count > g.max
}

// Count returns the attempts recorded for a run so far.
func (g *Guard) Count(runID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[runID]
}

// Forget drops the counter for a finished run.
func (g *Guard) Forget(runID string) {
	g.mu.Lock()
	delete(g.counts, runID)
	g.mu.Unlock()
}
