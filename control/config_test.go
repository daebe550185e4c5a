// File: control/config_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigStoreRejectsUnknownKey(t *testing.T) {
	cs := NewConfigStore()
	err := cs.SetConfig(map[string]any{"reconnect_delay_ms": 500})
	require.Error(t, err)
	require.Empty(t, cs.GetSnapshot())
}

func TestConfigStoreRejectsInvalidLogLevel(t *testing.T) {
	cs := NewConfigStore()
	err := cs.SetConfig(map[string]any{"log_level": "verbose"})
	require.Error(t, err)
}

func TestConfigStoreDispatchesReloadSynchronously(t *testing.T) {
	cs := NewConfigStore()
	var seen string
	cs.OnReload(func() {
		seen, _ = cs.GetSnapshot()["log_level"].(string)
	})
	require.NoError(t, cs.SetConfig(map[string]any{"log_level": "debug"}))
	require.Equal(t, "debug", seen)
}

func TestDefaultShellConfigSnapshotDoesNotPanic(t *testing.T) {
	cs := NewConfigStore()
	require.NotPanics(t, func() {
		DefaultShellConfig().Snapshot(cs)
	})
	require.Equal(t, ".", cs.GetSnapshot()["base_dir"])
}

func TestMetricsRegistrySeedsKnownCounters(t *testing.T) {
	mr := NewMetricsRegistry()
	snap := mr.GetSnapshot()
	for _, k := range knownCounters {
		require.Equal(t, int64(0), snap[k])
	}
	mr.Incr("commands.dispatched", 1)
	require.Equal(t, int64(1), mr.GetSnapshot()["commands.dispatched"])
}

func TestDebugProbesSeedsUptime(t *testing.T) {
	dp := NewDebugProbes()
	require.Contains(t, dp.Names(), "uptime_seconds")
	state := dp.DumpState()
	_, ok := state["uptime_seconds"].(float64)
	require.True(t, ok)
}

func TestHotReloadTracksCount(t *testing.T) {
	before := ReloadCount()
	n := TriggerHotReloadSync()
	require.Equal(t, before+1, n)
	require.Equal(t, n, ReloadCount())
}
