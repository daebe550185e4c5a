//go:build !linux
// +build !linux

// File: reactor/service_stub.go
// Author: momentics <momentics@gmail.com>
//
// UNIX domain sockets and inotify are Linux/BSD constructs; this control
// plane targets Linux only (see SPEC_FULL.md §4.2). NewService fails
// cleanly on any other platform rather than silently degrading.

package reactor

// Service is an unusable stand-in on non-Linux platforms; NewService
// always fails before one is returned to a caller.
type Service struct{}

// NewService returns ErrNotSupported on non-Linux platforms.
func NewService() (*Service, error) {
	return nil, ErrNotSupported
}

func (s *Service) PostJob(fd uintptr, op Op, mode Mode, fn JobFunc) error { return ErrNotSupported }
func (s *Service) RemoveJob(fd uintptr, op Op)                            {}
func (s *Service) Stop(drain bool)                                        {}
func (s *Service) Close() error                                           { return ErrNotSupported }
func (s *Service) Run() error                                             { return ErrNotSupported }
func (s *Service) RunOnce(timeoutMs int) (int, error)                     { return 0, ErrNotSupported }
func (s *Service) JobCount() int                                          { return 0 }
