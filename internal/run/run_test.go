package run

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunIsActive(t *testing.T) {
	r := New("demo")
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, StatusRunning, r.Status())
	assert.True(t, r.Active())
	assert.NotZero(t, r.StartedAt)
}

func TestTerminateIsIdempotent(t *testing.T) {
	r := New("demo")

	assert.True(t, r.Terminate("max_llm_calls exceeded"))
	assert.False(t, r.Terminate("again"), "second terminate is a no-op")

	snap := r.Snapshot()
	assert.Equal(t, StatusTerminated, snap.Status)
	assert.Equal(t, "max_llm_calls exceeded", snap.TerminationReason)
	assert.NotZero(t, snap.EndedAt)
}

func TestCompleteIsIdempotent(t *testing.T) {
	r := New("demo")
	assert.True(t, r.Complete())
	assert.False(t, r.Complete())
	assert.Equal(t, StatusCompleted, r.Status())
}

func TestNoTransitionLeavesTerminalState(t *testing.T) {
	r := New("demo")
	require.True(t, r.Terminate("stop"))

	assert.False(t, r.Complete(), "terminated run cannot complete")
	assert.Equal(t, StatusTerminated, r.Status())

	r2 := New("demo")
	require.True(t, r2.Complete())
	assert.False(t, r2.Terminate("stop"), "completed run cannot terminate")
	assert.Equal(t, StatusCompleted, r2.Status())
}

func TestConcurrentTerminateTransitionsOnce(t *testing.T) {
	r := New("demo")

	var wg sync.WaitGroup
	var mu sync.Mutex
	transitions := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Terminate("race") {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, transitions)
}

func TestAddCostIsOrderIndependent(t *testing.T) {
	costs := []float64{0.001, 0.25, 0.0375, 1.5, 0.0002}

	var want float64
	for _, c := range costs {
		want += c
	}

	r := New("demo")
	var wg sync.WaitGroup
	for _, c := range costs {
		wg.Add(1)
		go func(usd float64) {
			defer wg.Done()
			r.AddCost(usd)
		}(c)
	}
	wg.Wait()

	assert.InDelta(t, want, r.Snapshot().TotalCostUSD, 1e-9)
}

func TestManagerEnsureCreatesLazily(t *testing.T) {
	m := NewManager("proj")
	require.Nil(t, m.Current())

	r, created := m.Ensure()
	assert.True(t, created)
	assert.Equal(t, "proj", r.Project)

	again, created := m.Ensure()
	assert.False(t, created)
	assert.Same(t, r, again)
}

func TestManagerDoesNotResurrectTerminalRun(t *testing.T) {
	m := NewManager("proj")
	r, _ := m.Ensure()
	r.Terminate("stop")

	again, created := m.Ensure()
	assert.False(t, created)
	assert.Same(t, r, again)
	assert.False(t, again.Active())
}

func TestManagerDefaultsProject(t *testing.T) {
	m := NewManager("")
	r, _ := m.Ensure()
	assert.Equal(t, "default", r.Project)
}

func TestMinimalRunIsIndependent(t *testing.T) {
	m := NewManager("proj")
	r, _ := m.Ensure()
	minimal := m.NewMinimal()
	assert.NotEqual(t, r.ID, minimal.ID)
	minimal.Complete()
	assert.True(t, r.Active(), "completing a minimal run leaves the current run untouched")
}
