// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug handler and probe reflector. cmd/drvshell registers
// probes here for the config snapshot, metrics snapshot, driver count,
// and (on Linux) reactor job/inotify liveness; NewDebugProbes itself
// always seeds an uptime_seconds probe, since every process this
// module builds wants that regardless of what else gets registered.

package control

import (
	"sort"
	"sync"
	"time"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry pre-seeded with
// uptime_seconds, measured from the moment this call returns.
func NewDebugProbes() *DebugProbes {
	dp := &DebugProbes{
		probes: make(map[string]func() any),
	}
	started := time.Now()
	dp.probes["uptime_seconds"] = func() any {
		return time.Since(started).Seconds()
	}
	return dp
}

// RegisterProbe inserts a named debug hook, replacing any probe
// already registered under name.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// Names returns every registered probe name, sorted, so a debug
// endpoint can list what's available without evaluating any of them.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	names := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DumpState evaluates and returns the output of every registered
// probe.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}
