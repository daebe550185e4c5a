// File: transport/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client dials a UNIX domain socket non-blockingly and exposes the same
// Send/Recv task contract as Conn, grounded on
// original_source/supertel/task2/src/shell.c's connector/writer/
// reader_signature chain.

package transport

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/drv-shell/pool"
	"github.com/momentics/drv-shell/reactor"
)

// ConnectFunc is invoked once the non-blocking connect completes, err
// nil on success. Grounded on shell.c's connector.
type ConnectFunc func(c *Conn, err error)

// Client owns exactly one outbound UNIX domain socket connection.
type Client struct {
	iosvc *reactor.Service
	pool  *pool.BufferPool
	path  string
	conn  *Conn
	onCon ConnectFunc
}

// NewClient constructs a Client bound to iosvc's reactor. Connect must
// be called before Send/Recv.
func NewClient(iosvc *reactor.Service, bp *pool.BufferPool) *Client {
	return &Client{iosvc: iosvc, pool: bp}
}

// Connect dials path non-blockingly. If connect() succeeds at once, cb
// fires synchronously before Connect returns; if it is in progress, cb
// fires from the reactor once the socket is writable, with the result.
// An immediate failure is returned as Connect's error and cb does not
// fire.
func (c *Client) Connect(path string, cb ConnectFunc) error {
	c.path = path
	c.onCon = cb

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("transport: socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("transport: set nonblocking: %w", err)
	}

	c.conn = newConn(fd, c.iosvc, c.pool)

	err = unix.Connect(fd, &unix.SockaddrUnix{Name: path})
	if err == nil {
		c.finishConnect(nil)
		return nil
	}
	if err != unix.EINPROGRESS {
		unix.Close(fd)
		return fmt.Errorf("transport: connect %s: %w", path, err)
	}

	return c.iosvc.PostJob(uintptr(fd), reactor.OpWrite, reactor.Oneshot, c.onConnectable)
}

func (c *Client) onConnectable(fd uintptr, op reactor.Op) {
	errno, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		c.finishConnect(err)
		return
	}
	if errno != 0 {
		c.finishConnect(unix.Errno(errno))
		return
	}
	c.finishConnect(nil)
}

func (c *Client) finishConnect(err error) {
	if c.onCon != nil {
		c.onCon(c.conn, err)
	}
}

// Reconnect closes the current connection, if any, and dials path again
// using the same ConnectFunc hook installed by Connect. Grounded on
// unix_socket_client_reconnect's close-then-reconnect pattern in
// shell.c.
func (c *Client) Reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return c.Connect(c.path, c.onCon)
}

// Conn exposes the current connection for Send/Recv. Nil until Connect
// has created a socket (which happens before the connection completes)
// and again after Close.
func (c *Client) Conn() *Conn { return c.conn }

// Close tears down the current connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
