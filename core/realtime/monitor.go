package realtime

import (
	"context"
	"time"
)

// Monitor probes every registered connection once per interval. A connection
// that has not answered the previous probe is terminated and unregistered.
type Monitor struct {
	registry *Registry
	interval time.Duration
	onDead   func(*Connection)
}

// NewMonitor creates a Monitor. onDead, if set, runs for each connection it terminates.
func NewMonitor(registry *Registry, interval time.Duration, onDead func(*Connection)) *Monitor {
	return &Monitor{registry: registry, interval: interval, onDead: onDead}
}

// Sweep runs one liveness pass and returns the number of terminated connections.
func (m *Monitor) Sweep() int {
	var dead int
	for _, c := range m.registry.Snapshot() {
		if c.probe() {
			continue
		}
		c.Terminate()
		if m.registry.Remove(c) {
			dead++
			if m.onDead != nil {
				m.onDead(c)
			}
		}
	}
	return dead
}

// Run sweeps until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
