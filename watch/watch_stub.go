//go:build !linux
// +build !linux

// File: watch/watch_stub.go
// Author: momentics <momentics@gmail.com>
//
// inotify is Linux-only; this control plane targets Linux (see
// SPEC_FULL.md §4.2), so non-Linux builds get a stand-in that always
// fails to construct.

package watch

import (
	"errors"

	"github.com/momentics/drv-shell/reactor"
)

// ErrNotSupported is returned by New on non-Linux platforms.
var ErrNotSupported = errors.New("watch: platform not supported")

// Handler receives directory-watch events; unusable on this platform.
type Handler struct {
	OnCreated     func(name string)
	OnDeleted     func(name string)
	OnSelfDeleted func()
}

// DirWatcher is an unusable stand-in on non-Linux platforms.
type DirWatcher struct {
	OnFatalError func(error)
}

// New always returns ErrNotSupported on non-Linux platforms.
func New(iosvc *reactor.Service) (*DirWatcher, error) {
	return nil, ErrNotSupported
}

func (w *DirWatcher) Watch(path string, h Handler) error { return ErrNotSupported }
func (w *DirWatcher) Close() error                       { return ErrNotSupported }
func (w *DirWatcher) Fd() int                            { return -1 }
