package health

import (
	"sort"
	"sync"
	"time"
)

// Monitor tracks the health of handlers and infrastructure by name.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{statuses: make(map[string]Status)}
}

// Update replaces the status for name.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
}

// UpdateHealthy marks name healthy.
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy marks name unhealthy.
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// RecordSuccess marks name healthy and resets its failure count.
func (m *Monitor) RecordSuccess(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.statuses[name]
	if ok && prev.Healthy && prev.Failures == 0 {
		prev.Timestamp = time.Now()
		m.statuses[name] = prev
		return
	}
	m.statuses[name] = NewHealthy(name, "")
}

// RecordFailure marks name degraded with the sanitized error text and bumps
// its consecutive failure count.
func (m *Monitor) RecordFailure(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := ""
	if err != nil {
		msg = sanitizeErrorMessage(err.Error())
	}
	status := NewDegraded(name, msg)
	status.Failures = m.statuses[name].Failures + 1
	m.statuses[name] = status
}

// Get returns the status for name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statuses[name]
	return status, ok
}

// GetAll returns all statuses ordered by name.
func (m *Monitor) GetAll() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

// AggregateHealth rolls every tracked status into one.
func (m *Monitor) AggregateHealth(systemName string) Status {
	return Aggregate(systemName, m.GetAll())
}
