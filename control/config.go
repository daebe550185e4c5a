// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload
// propagation. Backs the driver shell's runtime-tunable settings (base
// directory, log level) so a SIGHUP or debug probe can rewrite them
// without restarting the reactor. Unlike a general-purpose settings
// blackboard, SetConfig only knows about the two keys ShellConfig
// exposes and validates log_level against zap's level names before
// accepting it — a config store backing a live process's runtime
// behavior should reject a typo, not store it and let it silently do
// nothing on next hot-reload.

package control

import (
	"fmt"
	"sync"
)

// knownShellConfigKeys are the only keys SetConfig accepts.
var knownShellConfigKeys = map[string]bool{
	"base_dir":  true,
	"log_level": true,
}

// validLogLevels are the four level names the CLI documents for
// -log-level. zap.AtomicLevel.UnmarshalText accepts all of them and
// more (dpanic, panic, fatal), which SetConfig rejects.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// ConfigStore is the driver shell's live settings: base_dir and
// log_level, with atomic snapshot and reload-listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	snap := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		snap[k] = v
	}
	return snap
}

// SetConfig merges new values and dispatches reload listeners. It
// rejects unknown keys and invalid log_level values outright rather
// than storing them: a debug probe or SIGHUP-driven update that
// mistypes "log_level" should fail loudly, not silently become a dead
// map entry.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) error {
	cs.mu.Lock()
	for k, v := range newCfg {
		if !knownShellConfigKeys[k] {
			cs.mu.Unlock()
			return fmt.Errorf("control: unknown config key %q", k)
		}
		if k == "log_level" {
			lvl, ok := v.(string)
			if !ok || !validLogLevels[lvl] {
				cs.mu.Unlock()
				return fmt.Errorf("control: invalid log_level %v", v)
			}
		}
	}
	for k, v := range newCfg {
		cs.config[k] = v
	}
	cs.mu.Unlock()

	cs.dispatchReload()
	return nil
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// dispatchReload invokes every listener synchronously, so a caller
// that has just changed log_level can rely on the logger's
// zap.AtomicLevel having been updated before SetConfig returns —
// matching the single-goroutine discipline the reactor holds itself to
// (SPEC_FULL.md §5), instead of the fire-and-forget goroutine-per-
// listener dispatch a generic config store would use.
func (cs *ConfigStore) dispatchReload() {
	cs.mu.RLock()
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// ShellConfig holds the settings the CLI accepts and the registry consults
// at startup. Values also live in a ConfigStore so debug probes can read
// (and, for LogLevel, hot-reload) them at runtime.
type ShellConfig struct {
	BaseDir  string // directory scanned/watched for driver sockets
	LogLevel string // "debug", "info", "warn", "error"
}

// DefaultShellConfig returns the CLI defaults.
func DefaultShellConfig() *ShellConfig {
	return &ShellConfig{
		BaseDir:  ".",
		LogLevel: "info",
	}
}

// Snapshot publishes the config into a ConfigStore for introspection.
// Panics if LogLevel isn't one of debug/info/warn/error: the flag
// parser is expected to have already validated it via newLogger before
// this is ever called.
func (c *ShellConfig) Snapshot(cs *ConfigStore) {
	if err := cs.SetConfig(map[string]any{
		"base_dir":  c.BaseDir,
		"log_level": c.LogLevel,
	}); err != nil {
		panic(fmt.Sprintf("control: default shell config rejected: %v", err))
	}
}
