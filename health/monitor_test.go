package health

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		subs     []Status
		expected State
	}{
		{"empty", nil, StateHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StateHealthy},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StateDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, StateUnhealthy},
		{"unhealthy first", []Status{NewUnhealthy("a", ""), NewDegraded("b", "")}, StateUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := Aggregate("formgateway", tt.subs)
			assert.Equal(t, tt.expected, status.State)
			assert.Equal(t, tt.expected == StateHealthy, status.Healthy)
			assert.Len(t, status.SubStatuses, len(tt.subs))
		})
	}
}

func TestMonitor_RecordFailureAndSuccess(t *testing.T) {
	m := NewMonitor()

	m.RecordFailure("remote-doubler", errors.New("Post http://10.0.0.5:9000/api/event: timeout"))
	m.RecordFailure("remote-doubler", errors.New("again"))

	status, ok := m.Get("remote-doubler")
	require.True(t, ok)
	assert.Equal(t, StateDegraded, status.State)
	assert.Equal(t, 2, status.Failures)
	assert.Equal(t, "again", status.Message)

	m.RecordSuccess("remote-doubler")
	status, _ = m.Get("remote-doubler")
	assert.True(t, status.Healthy)
	assert.Zero(t, status.Failures)
}

func TestMonitor_AggregateHealthOrdered(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("store", "memory")
	m.UpdateUnhealthy("nats", "disconnected")
	m.RecordSuccess("base")

	agg := m.AggregateHealth("formgateway")
	assert.Equal(t, StateUnhealthy, agg.State)
	require.Len(t, agg.SubStatuses, 3)
	assert.Equal(t, "base", agg.SubStatuses[0].Component)
	assert.Equal(t, "nats", agg.SubStatuses[1].Component)
	assert.Equal(t, "store", agg.SubStatuses[2].Component)
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"dial nats://user:pw@broker:4222 failed", "dial [URL] failed"},
		{"Post http://handler.local/api/event: EOF", "Post [URL] EOF"},
		{"connect 192.168.1.10:6379 refused", "connect [IP] refused"},
		{"auth token=abc123 rejected", "auth [REDACTED] rejected"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeErrorMessage(tt.in), tt.in)
	}
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("h%d", i%4)
			if i%2 == 0 {
				m.RecordFailure(name, errors.New("x"))
			} else {
				m.RecordSuccess(name)
			}
			_ = m.AggregateHealth("sys")
		}(i)
	}
	wg.Wait()
	assert.Len(t, m.GetAll(), 4)
}
