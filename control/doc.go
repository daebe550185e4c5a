// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, configuration control, and debug
// introspection layer for the driver shell CLI.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - Runtime observers for hot-reload (SIGHUP re-reads log level)
//   - Metrics telemetry contracts (driver count, dispatch counters)
//   - State export, debug hooks, and probe registration
//
// It is read and written from the CLI's signal-handling and debug-dump
// paths; cmd/drvshell's SIGHUP job runs on the reactor goroutine and
// calls ConfigStore.SetConfig and TriggerHotReloadSync from there.
package control
