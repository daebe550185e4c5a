// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for the driver shell: driver create/delete
// counters and dispatch counters. NewMetricsRegistry
// seeds the exact counters cmd/drvshell and shellline increment
// (drivers.created, drivers.deleted, commands.dispatched,
// commands.failed) at zero, so GetSnapshot always reports the shell's
// full counter set instead of only whichever ones happen to have
// fired first.

package control

import (
	"sync"
	"time"
)

// knownCounters names every counter this module's CLI increments.
var knownCounters = []string{
	"drivers.created",
	"drivers.deleted",
	"commands.dispatched",
	"commands.failed",
}

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates a registry with every known driver-shell
// counter present and set to zero.
func NewMetricsRegistry() *MetricsRegistry {
	mr := &MetricsRegistry{
		metrics: make(map[string]any, len(knownCounters)),
	}
	for _, k := range knownCounters {
		mr.metrics[k] = int64(0)
	}
	return mr
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Incr adds delta to an int64 metric, creating it at delta if absent.
func (mr *MetricsRegistry) Incr(key string, delta int64) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	cur, _ := mr.metrics[key].(int64)
	mr.metrics[key] = cur + delta
	mr.updated = time.Now()
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}
