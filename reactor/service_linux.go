//go:build linux
// +build linux

// File: reactor/service_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Service is the single-threaded readiness loop: post/remove jobs keyed by
// (fd, op), drive their callbacks, and let a callback safely mutate the
// job table (including its own registration) without corrupting the tick
// currently in flight. Grounded on reactor/reactor_linux.go's epoll
// wiring from the teacher, generalized from a single Register/Wait/Close
// contract into the post_job/remove_job model spec-required here.

package reactor

import (
	"fmt"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

type jobKey struct {
	fd uintptr
	op Op
}

type job struct {
	mode Mode
	fn   JobFunc
}

// pendingOp is a deferred PostJob/RemoveJob/Stop captured while a callback
// is executing; applied once the current batch of callbacks returns.
type pendingOp struct {
	apply func(s *Service)
}

// Service is the epoll-backed reactor. Not safe for concurrent use — by
// design every method is only ever called from the goroutine running Run,
// or before Run has started.
type Service struct {
	epfd int

	jobs     map[jobKey]*job
	fdEvents map[uintptr]uint32 // combined epoll interest per fd

	pending    *queue.Queue
	dispatching bool

	stopRequested  bool
	drainRequested bool
}

// NewService creates an epoll instance and its job table.
func NewService() (*Service, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &Service{
		epfd:     epfd,
		jobs:     make(map[jobKey]*job),
		fdEvents: make(map[uintptr]uint32),
		pending:  queue.New(),
	}, nil
}

func opMask(op Op) uint32 {
	if op == OpRead {
		return unix.EPOLLIN
	}
	return unix.EPOLLOUT
}

// PostJob registers fn to run when fd is ready for op. Re-posting an
// existing (fd, op) replaces it — job uniqueness (testable property 2) is
// enforced by the map key. If called while a callback is executing, the
// registration is deferred to the end of the current tick.
func (s *Service) PostJob(fd uintptr, op Op, mode Mode, fn JobFunc) error {
	if s.dispatching {
		s.pending.Add(pendingOp{apply: func(s *Service) { _ = s.postJobNow(fd, op, mode, fn) }})
		return nil
	}
	return s.postJobNow(fd, op, mode, fn)
}

func (s *Service) postJobNow(fd uintptr, op Op, mode Mode, fn JobFunc) error {
	key := jobKey{fd, op}
	_, existed := s.jobs[key]
	s.jobs[key] = &job{mode: mode, fn: fn}

	prevMask := s.fdEvents[fd]
	newMask := prevMask | opMask(op)
	s.fdEvents[fd] = newMask

	ev := &unix.EpollEvent{Events: newMask, Fd: int32(fd)}
	if prevMask == 0 {
		if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, int(fd), ev); err != nil {
			return fmt.Errorf("reactor: epoll_ctl add fd=%d: %w", fd, err)
		}
	} else if !existed || newMask != prevMask {
		if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, int(fd), ev); err != nil {
			return fmt.Errorf("reactor: epoll_ctl mod fd=%d: %w", fd, err)
		}
	}
	return nil
}

// RemoveJob deregisters (fd, op), if present. Legal from inside the job's
// own callback. Deferred to end-of-tick when called while dispatching.
func (s *Service) RemoveJob(fd uintptr, op Op) {
	if s.dispatching {
		s.pending.Add(pendingOp{apply: func(s *Service) { s.removeJobNow(fd, op) }})
		return
	}
	s.removeJobNow(fd, op)
}

func (s *Service) removeJobNow(fd uintptr, op Op) {
	key := jobKey{fd, op}
	if _, ok := s.jobs[key]; !ok {
		return
	}
	delete(s.jobs, key)

	newMask := s.fdEvents[fd] &^ opMask(op)
	if newMask == 0 {
		delete(s.fdEvents, fd)
		_ = unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
		return
	}
	s.fdEvents[fd] = newMask
	ev := &unix.EpollEvent{Events: newMask, Fd: int32(fd)}
	_ = unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, int(fd), ev)
}

// Stop requests the loop to terminate. If drain is true, any readiness
// notifications already pending in the kernel are delivered before Run
// returns; if false, Run returns as soon as the current tick's callbacks
// have finished.
func (s *Service) Stop(drain bool) {
	apply := func(s *Service) {
		s.stopRequested = true
		if drain {
			s.drainRequested = true
		}
	}
	if s.dispatching {
		s.pending.Add(pendingOp{apply: apply})
		return
	}
	apply(s)
}

// Close releases the epoll file descriptor. Call after Run returns.
func (s *Service) Close() error {
	return unix.Close(s.epfd)
}

const maxEvents = 128

// poll performs one EpollWait, retrying on EINTR, and dispatches ready
// jobs. timeoutMs < 0 blocks indefinitely; 0 polls without blocking.
func (s *Service) poll(timeoutMs int) (int, error) {
	var raw [maxEvents]unix.EpollEvent
	for {
		n, err := unix.EpollWait(s.epfd, raw[:], timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, fmt.Errorf("reactor: epoll_wait: %w", err)
		}
		s.dispatch(raw[:n])
		return n, nil
	}
}

// dispatch invokes callbacks for one batch of epoll events. Oneshot jobs
// are removed before their callback runs; a callback may call PostJob,
// RemoveJob, or Stop on any fd (including its own) — those mutations are
// queued and applied once the whole batch has been dispatched.
func (s *Service) dispatch(events []unix.EpollEvent) {
	s.dispatching = true
	for _, ev := range events {
		fd := uintptr(ev.Fd)
		mask := ev.Events | unix.EPOLLERR | unix.EPOLLHUP

		for _, op := range [...]Op{OpRead, OpWrite} {
			if mask&opMask(op) == 0 && ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) == 0 {
				continue
			}
			key := jobKey{fd, op}
			j, ok := s.jobs[key]
			if !ok {
				continue
			}
			if j.mode == Oneshot {
				s.removeJobNow(fd, op)
			}
			j.fn(fd, op)
		}
	}
	s.dispatching = false
	s.applyPending()
}

func (s *Service) applyPending() {
	for s.pending.Length() > 0 {
		op := s.pending.Remove().(pendingOp)
		op.apply(s)
	}
}

// JobCount reports how many (fd, op) jobs are currently registered, for
// debug probes and tests.
func (s *Service) JobCount() int { return len(s.jobs) }

// RunOnce performs a single poll/dispatch cycle and reports how many fds
// had events. timeoutMs < 0 blocks indefinitely; 0 polls without
// blocking. Exposed so tests can step the reactor without a full Run
// loop.
func (s *Service) RunOnce(timeoutMs int) (int, error) {
	return s.poll(timeoutMs)
}

// Run blocks, dispatching readiness events, until Stop has been observed.
func (s *Service) Run() error {
	for {
		if _, err := s.poll(-1); err != nil {
			return err
		}
		if s.stopRequested {
			if s.drainRequested {
				for {
					n, err := s.poll(0)
					if err != nil || n == 0 {
						break
					}
				}
			}
			return nil
		}
	}
}
