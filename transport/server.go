// File: transport/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server listens on a UNIX domain socket and hands each accepted
// connection to an AcceptFunc hook, grounded on
// original_source/supertel/task2/src/unix-socket-server.c's
// unix_socket_server_init/listen/acceptor.

package transport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/momentics/drv-shell/pool"
	"github.com/momentics/drv-shell/reactor"
)

const backlog = 50

// AcceptFunc is invoked once per accepted connection. Returning false
// closes the connection immediately, mirroring the C original's
// acceptor contract.
type AcceptFunc func(c *Conn) bool

// Server owns a listening UNIX domain socket and its accepted Conns.
type Server struct {
	fd     int
	path   string
	iosvc  *reactor.Service
	pool   *pool.BufferPool
	accept AcceptFunc
	conns  map[int]*Conn
}

// NewServer creates, binds, and listens on a UNIX domain socket at path.
// Any pre-existing socket file at path is removed first, matching the
// usual UNIX-socket bind-after-crash recovery idiom. The acceptor job is
// registered immediately; connections accepted before Accept installs a
// hook are simply kept open.
func NewServer(path string, iosvc *reactor.Service, bp *pool.BufferPool) (*Server, error) {
	_ = os.Remove(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: set nonblocking: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: listen %s: %w", path, err)
	}

	srv := &Server{
		fd:    fd,
		path:  path,
		iosvc: iosvc,
		pool:  bp,
		conns: make(map[int]*Conn),
	}

	if err := iosvc.PostJob(uintptr(fd), reactor.OpRead, reactor.Persistent, srv.onAcceptable); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: register acceptor: %w", err)
	}

	return srv, nil
}

// Accept installs hook as the callback invoked for each newly accepted
// connection.
func (s *Server) Accept(hook AcceptFunc) {
	s.accept = hook
}

// onAcceptable drains every connection the kernel has queued; epoll is
// level-triggered so a burst of connect()s can arrive as one event.
func (s *Server) onAcceptable(fd uintptr, op reactor.Op) {
	for {
		nfd, _, err := unix.Accept(int(fd))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			return
		}

		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			continue
		}

		c := newConn(nfd, s.iosvc, s.pool)
		s.conns[nfd] = c

		if s.accept != nil && !s.accept(c) {
			delete(s.conns, nfd)
			c.Close()
		}
	}
}

// CloseConnection closes and forgets c.
func (s *Server) CloseConnection(c *Conn) error {
	delete(s.conns, c.fd)
	return c.Close()
}

// Close shuts down the listening socket and every accepted connection.
func (s *Server) Close() error {
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = make(map[int]*Conn)
	s.iosvc.RemoveJob(uintptr(s.fd), reactor.OpRead)
	err := unix.Close(s.fd)
	_ = os.Remove(s.path)
	return err
}
