// control/hotreload.go
// Manages global hot-reload hooks for config changes, e.g. cmd/drvshell's
// SIGHUP handler re-reading log level without restarting the reactor.
// TriggerHotReloadSync runs on the reactor goroutine itself, so unlike
// a generic pub/sub reload bus this package tracks how many reloads a
// running shell has actually seen, exposed to a debug probe as
// "reload_count" without the caller having to keep its own counter.

package control

import "sync/atomic"

var (
	reloadHooks []func()
	reloadCount int64
)

// RegisterReloadHook adds a new component reload listener.
func RegisterReloadHook(fn func()) {
	reloadHooks = append(reloadHooks, fn)
}

// TriggerHotReload dispatches all reload hooks asynchronously.
func TriggerHotReload() {
	atomic.AddInt64(&reloadCount, 1)
	for _, fn := range reloadHooks {
		go fn()
	}
}

// TriggerHotReloadSync invokes all reload hooks synchronously — the
// SIGHUP job callback that calls this runs on the reactor goroutine,
// so a hook mutating shared state here needs no lock of its own.
// Returns the running count of reloads triggered so far.
func TriggerHotReloadSync() int64 {
	n := atomic.AddInt64(&reloadCount, 1)
	for _, fn := range reloadHooks {
		fn()
	}
	return n
}

// ReloadCount reports how many times a reload has been triggered,
// synchronous or not, since process start.
func ReloadCount() int64 { return atomic.LoadInt64(&reloadCount) }
