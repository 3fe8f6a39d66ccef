package pipeline

import "sync"

// Monotonic enforces the progress invariant for one job instance: reported
// values never decrease and nothing follows a terminal report.
type Monotonic struct {
	mu       sync.Mutex
	last     int
	terminal bool
}

// Next clamps p into the valid monotone range and returns the value that
// should actually be reported. It returns -1 once the job is terminal.
func (m *Monotonic) Next(p int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminal {
		return -1
	}
	if p < m.last {
		p = m.last
	}
	if p > 100 {
		p = 100
	}
	m.last = p
	return p
}

// Finish marks the job terminal. The first caller gets true; every later
// report is suppressed.
func (m *Monotonic) Finish() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminal {
		return false
	}
	m.terminal = true
	return true
}

func (m *Monotonic) Last() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
