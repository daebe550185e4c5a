//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probes: the epoll job table and inotify fd this
// process actually holds open, alongside the generic CPU count.

package control

import (
	"runtime"

	"github.com/momentics/drv-shell/reactor"
	"github.com/momentics/drv-shell/watch"
)

// RegisterPlatformProbes sets Linux-specific debug metrics on dp,
// reading live state from svc's epoll job table and dw's inotify fd.
func RegisterPlatformProbes(dp *DebugProbes, svc *reactor.Service, dw *watch.DirWatcher) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.reactor_jobs", func() any {
		return svc.JobCount()
	})
	dp.RegisterProbe("platform.inotify_fd", func() any {
		return dw.Fd()
	})
}
