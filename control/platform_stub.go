//go:build !linux
// +build !linux

// control/platform_stub.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux builds have no epoll job table or inotify fd to report;
// keep the CPU-count probe so cmd/drvshell's wiring call stays
// platform-independent.

package control

import (
	"runtime"

	"github.com/momentics/drv-shell/reactor"
	"github.com/momentics/drv-shell/watch"
)

// RegisterPlatformProbes sets the probes available on this platform.
func RegisterPlatformProbes(dp *DebugProbes, svc *reactor.Service, dw *watch.DirWatcher) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
}
