package run

import "sync"

// Manager holds the current run for one instrumented process. Runs are
// created lazily on the first intercepted action, never pre-declared.
type Manager struct {
	project string

	mu      sync.Mutex
	current *Run
}

// NewManager creates a Manager for the given project.
func NewManager(project string) *Manager {
	if project == "" {
		project = "default"
	}
	return &Manager{project: project}
}

// Ensure returns the current run, creating one if none exists. A
// terminal run is returned as-is, never replaced: runs are not
// resurrected, and the interception layer rejects actions on inactive
// runs. The second return is true only when this call created the run,
// so the caller emits run_started exactly once.
func (m *Manager) Ensure() (*Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current, false
	}
	m.current = New(m.project)
	return m.current, true
}

// Current returns the current run, which may be nil or terminal.
func (m *Manager) Current() *Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// NewMinimal creates a standalone run outside the manager's current
// slot, for stateless ingress contexts that log a single event and
// complete immediately.
func (m *Manager) NewMinimal() *Run {
	return New(m.project)
}
