//go:build linux
// +build linux

// File: watch/watch_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package watch

import (
	"bytes"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/drv-shell/reactor"
)

// Handler receives directory-watch events in the exact order the kernel
// reported them, mirroring base_dir_smth_created/deleted/self_deleted.
type Handler struct {
	OnCreated     func(name string)
	OnDeleted     func(name string)
	OnSelfDeleted func()
}

// DirWatcher wraps one inotify instance watching one directory.
type DirWatcher struct {
	fd      int
	wd      int
	iosvc   *reactor.Service
	handler Handler

	// OnFatalError is invoked when the inotify fd itself becomes
	// unreadable — a structural failure the C original treated as
	// abort()-worthy. Left nil, the error is silently dropped; callers
	// normally wire this to their own fatal-logging path.
	OnFatalError func(error)
}

// New creates an inotify instance registered with iosvc, but does not
// watch any path yet; call Watch.
func New(iosvc *reactor.Service) (*DirWatcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("watch: inotify_init1: %w", err)
	}
	return &DirWatcher{fd: fd, wd: -1, iosvc: iosvc}, nil
}

// Watch adds path (must be a directory) to the inotify instance with
// IN_CREATE|IN_DELETE|IN_DELETE_SELF|IN_EXCL_UNLINK|IN_ONLYDIR, exactly
// as shell_run does, and installs h as the event handler.
func (w *DirWatcher) Watch(path string, h Handler) error {
	const mask = unix.IN_CREATE | unix.IN_DELETE | unix.IN_DELETE_SELF |
		unix.IN_EXCL_UNLINK | unix.IN_ONLYDIR

	wd, err := unix.InotifyAddWatch(w.fd, path, mask)
	if err != nil {
		return fmt.Errorf("watch: inotify_add_watch %s: %w", path, err)
	}
	w.wd = wd
	w.handler = h

	return w.iosvc.PostJob(uintptr(w.fd), reactor.OpRead, reactor.Persistent, w.onReadable)
}

func (w *DirWatcher) onReadable(fd uintptr, op reactor.Op) {
	pending, err := unix.IoctlGetInt(int(fd), unix.TIOCINQ)
	if err != nil {
		w.fatal(fmt.Errorf("watch: ioctl FIONREAD: %w", err))
		return
	}
	if pending == 0 {
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
			w.fatal(fmt.Errorf("watch: read: %w", err))
			return
		}
		off += n
	}

	w.dispatch(buf)
}

func (w *DirWatcher) fatal(err error) {
	if w.OnFatalError != nil {
		w.OnFatalError(err)
	}
}

// dispatch decodes and delivers every inotify_event packed into raw, in
// the order the kernel produced them.
func (w *DirWatcher) dispatch(raw []byte) {
	off := 0
	for off+unix.SizeofInotifyEvent <= len(raw) {
		ev := (*unix.InotifyEvent)(unsafe.Pointer(&raw[off]))
		off += unix.SizeofInotifyEvent

		var name string
		if ev.Len > 0 {
			nameBytes := raw[off : off+int(ev.Len)]
			if i := bytes.IndexByte(nameBytes, 0); i >= 0 {
				nameBytes = nameBytes[:i]
			}
			name = string(nameBytes)
			off += int(ev.Len)
		}

		mask := ev.Mask
		if mask&unix.IN_CREATE != 0 && w.handler.OnCreated != nil {
			w.handler.OnCreated(name)
		}
		if mask&unix.IN_DELETE != 0 && w.handler.OnDeleted != nil {
			w.handler.OnDeleted(name)
		}
		if mask&unix.IN_DELETE_SELF != 0 && w.handler.OnSelfDeleted != nil {
			w.handler.OnSelfDeleted()
		}
	}
}

// Fd returns the underlying inotify file descriptor, for debug probes.
func (w *DirWatcher) Fd() int { return w.fd }

// Close removes the watch job and closes the inotify fd.
func (w *DirWatcher) Close() error {
	w.iosvc.RemoveJob(uintptr(w.fd), reactor.OpRead)
	if w.wd >= 0 {
		unix.InotifyRmWatch(w.fd, uint32(w.wd))
	}
	return unix.Close(w.fd)
}
