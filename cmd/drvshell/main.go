// File: cmd/drvshell/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// drvshell is the CLI entrypoint tying reactor, transport, watch,
// registry, and shellline together, grounded on
// original_source/supertel/task2/src/shell.c's shell_init/shell_run and
// the teacher's examples/echo/main.go flag+signal idiom.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/momentics/drv-shell/control"
	"github.com/momentics/drv-shell/pool"
	"github.com/momentics/drv-shell/reactor"
	"github.com/momentics/drv-shell/registry"
	"github.com/momentics/drv-shell/shellline"
	"github.com/momentics/drv-shell/watch"
)

const (
	exitOK           = 0
	exitFatal        = 1
	exitBaseDirGone  = 2
)

func main() {
	dir := flag.String("dir", ".", "base directory to scan for driver sockets")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger, atomicLevel, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drvshell: bad -log-level: %v\n", err)
		os.Exit(exitFatal)
	}
	defer logger.Sync()

	cfg := control.DefaultShellConfig()
	cfg.BaseDir = *dir
	cfg.LogLevel = *logLevel
	cs := control.NewConfigStore()
	cs.OnReload(func() {
		snap := cs.GetSnapshot()
		if lvl, ok := snap["log_level"].(string); ok {
			_ = atomicLevel.UnmarshalText([]byte(lvl))
		}
		logger.Debug("config store updated", zap.Any("config", snap))
	})
	cfg.Snapshot(cs)

	metrics := control.NewMetricsRegistry()
	debug := control.NewDebugProbes()
	debug.RegisterProbe("config", func() any { return cs.GetSnapshot() })
	debug.RegisterProbe("metrics", func() any { return metrics.GetSnapshot() })
	debug.RegisterProbe("reload_count", func() any { return control.ReloadCount() })

	control.RegisterReloadHook(func() {
		logger.Info("hot-reload triggered", zap.Any("config", cs.GetSnapshot()), zap.Any("metrics", metrics.GetSnapshot()))
	})

	if err := os.MkdirAll(cfg.BaseDir, 0700); err != nil {
		logger.Fatal("can't create base directory", zap.String("dir", cfg.BaseDir), zap.Error(err))
	}

	svc, err := reactor.NewService()
	if err != nil {
		logger.Fatal("can't create reactor", zap.Error(err))
	}
	defer svc.Close()

	bp := pool.NewBufferPool()
	reg := registry.New(svc, bp, cfg.BaseDir, logger)
	reg.OnFatal = func(err error) {
		logger.Fatal("structural invariant violated", zap.Error(err))
	}

	debug.RegisterProbe("registered_drivers", func() any { return len(reg.Snapshot()) })

	frontend := shellline.New(reg, os.Stdout)
	frontend.Metrics = metrics

	dw, err := watch.New(svc)
	if err != nil {
		logger.Fatal("can't create directory watcher", zap.Error(err))
	}
	defer dw.Close()
	dw.OnFatalError = func(err error) {
		logger.Fatal("directory watch failed", zap.Error(err))
	}

	if err := dw.Watch(cfg.BaseDir, watch.Handler{
		OnCreated: func(name string) {
			reg.OnCreated(name)
			metrics.Incr("drivers.created", 1)
		},
		OnDeleted: func(name string) {
			reg.OnDeleted(name)
			metrics.Incr("drivers.deleted", 1)
		},
		OnSelfDeleted: reg.OnSelfDeleted,
	}); err != nil {
		logger.Fatal("can't watch base directory", zap.String("dir", cfg.BaseDir), zap.Error(err))
	}

	control.RegisterPlatformProbes(debug, svc, dw)

	scanExisting(cfg.BaseDir, reg, logger)

	if err := installSignalStop(svc, logger); err != nil {
		logger.Fatal("can't install signal handler", zap.Error(err))
	}
	if err := installHangupReload(svc, cs, logger); err != nil {
		logger.Fatal("can't install SIGHUP handler", zap.Error(err))
	}

	lr := shellline.NewLineReader(frontend)
	if err := installStdin(svc, lr, logger); err != nil {
		logger.Fatal("can't watch stdin", zap.Error(err))
	}

	fmt.Fprint(os.Stdout, shellline.Prompt)

	if err := svc.Run(); err != nil {
		logger.Fatal("reactor loop failed", zap.Error(err))
	}

	if reg.SelfDeleted() {
		os.Exit(exitBaseDirGone)
	}
	os.Exit(exitOK)
}

// newLogger returns a logger and the mutable level backing it, so a
// later SIGHUP-driven config change can retarget verbosity without
// rebuilding the logger.
func newLogger(level string) (*zap.Logger, zap.AtomicLevel, error) {
	var lvl zap.AtomicLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	logger, err := cfg.Build()
	return logger, lvl, err
}

// scanExisting connects to every driver socket already present in dir,
// alphabetically, matching connect_to_all_existing_sockets's
// scandir(..., alphasort) in shell.c.
func scanExisting(dir string, reg *registry.Registry, logger *zap.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Fatal("can't scan base directory", zap.String("dir", dir), zap.Error(err))
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		reg.OnCreated(name)
	}
}

// installSignalStop wires SIGINT/SIGTERM to a graceful, draining reactor
// stop via a self-pipe: the signal handler goroutine only ever writes to
// an fd, never touches reactor state directly, preserving the
// single-goroutine invariant in SPEC_FULL.md §5.
func installSignalStop(svc *reactor.Service, logger *zap.Logger) error {
	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	if err := unix.SetNonblock(int(r.Fd()), true); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		w.Write([]byte{0})
		w.Close()
	}()

	return svc.PostJob(uintptr(r.Fd()), reactor.OpRead, reactor.Oneshot, func(fd uintptr, op reactor.Op) {
		logger.Info("shutdown signal received, draining")
		r.Close()
		svc.Stop(true)
	})
}

// installHangupReload wires SIGHUP to control.TriggerHotReloadSync via the
// same self-pipe idiom as installSignalStop, but as a Persistent job since
// SIGHUP may arrive more than once over the process's lifetime, matching
// control/config.go's "SIGHUP rewrites settings without restarting the
// reactor" contract. If DRVSHELL_LOG_LEVEL names a valid level, it is
// applied to cs before the reload hooks run, so a running shell's
// verbosity can be raised or lowered without a restart.
func installHangupReload(svc *reactor.Service, cs *control.ConfigStore, logger *zap.Logger) error {
	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	if err := unix.SetNonblock(int(r.Fd()), true); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	go func() {
		for range sigCh {
			w.Write([]byte{0})
		}
	}()

	return svc.PostJob(uintptr(r.Fd()), reactor.OpRead, reactor.Persistent, func(fd uintptr, op reactor.Op) {
		var b [64]byte
		for {
			_, err := unix.Read(int(fd), b[:])
			if err != nil {
				break
			}
		}
		if lvl := os.Getenv("DRVSHELL_LOG_LEVEL"); lvl != "" {
			if err := cs.SetConfig(map[string]any{"log_level": lvl}); err != nil {
				logger.Warn("SIGHUP: ignoring DRVSHELL_LOG_LEVEL", zap.Error(err))
			}
		}
		n := control.TriggerHotReloadSync()
		logger.Info("hot-reload complete", zap.Int64("reload_count", n))
	})
}

// installStdin registers stdin as a persistent read job feeding complete
// lines to lr, matching on_input's FIONREAD-bounded, EINTR-retried read
// loop in shell.c.
func installStdin(svc *reactor.Service, lr *shellline.LineReader, logger *zap.Logger) error {
	fd := int(os.Stdin.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}

	return svc.PostJob(uintptr(fd), reactor.OpRead, reactor.Persistent, func(fd uintptr, op reactor.Op) {
		pending, err := unix.IoctlGetInt(int(fd), unix.TIOCINQ)
		if err != nil {
			logger.Fatal("can't ioctl(FIONREAD) on stdin", zap.Error(err))
		}
		if pending == 0 {
			svc.Stop(false)
			return
		}

		buf := make([]byte, pending)
		off := 0
		for off < len(buf) {
			n, err := unix.Read(int(fd), buf[off:])
			if err != nil {
				if err == unix.EINTR {
					continue
				}
				logger.Fatal("can't read stdin", zap.Error(err))
			}
			off += n
		}
		lr.Feed(buf)
	})
}
