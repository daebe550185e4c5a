// File: transport/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn wraps one connected UNIX domain socket file descriptor with the
// same non-blocking, task-based Send/Recv contract as
// original_source/supertel/task2/src/unix-socket-server.c's
// data_may_be_sent/data_may_be_read, generalized to serve both the
// server's accepted connections and the client's outbound connection.

package transport

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/momentics/drv-shell/pool"
	"github.com/momentics/drv-shell/reactor"
)

// ReadFunc is invoked when a Recv task completes: successfully with the
// bytes read, or with err set (the EOF sentinel IsEOF recognizes
// included) if it didn't.
type ReadFunc func(c *Conn, data []byte, err error)

// WriteFunc is invoked when a Send task completes.
type WriteFunc func(c *Conn, err error)

// ioTask tracks one in-flight Send or Recv on a Conn. At most one of
// each direction may be active at a time (invariant #1).
type ioTask struct {
	buf      *pool.Buffer
	progress int
	active   bool
	readCb   ReadFunc
	writeCb  WriteFunc
}

// Conn is one connected, non-blocking UNIX domain socket.
type Conn struct {
	fd     int
	iosvc  *reactor.Service
	pool   *pool.BufferPool
	read   ioTask
	write  ioTask
	closed bool
}

func newConn(fd int, iosvc *reactor.Service, bp *pool.BufferPool) *Conn {
	return &Conn{fd: fd, iosvc: iosvc, pool: bp}
}

// Fd returns the underlying file descriptor, for logging and tests.
func (c *Conn) Fd() int { return c.fd }

// Recv arms a read of exactly n bytes. cb fires once n bytes have
// arrived, or with an error (one IsEOF reports true for on orderly
// close) if it can't.
func (c *Conn) Recv(n int, cb ReadFunc) error {
	if c.closed {
		return ErrClosed
	}
	if c.read.active {
		return ErrTaskInFlight
	}

	c.read.buf = c.pool.Get(n)
	c.read.progress = 0
	c.read.readCb = cb
	c.read.active = true

	return c.iosvc.PostJob(uintptr(c.fd), reactor.OpRead, reactor.Persistent, c.onReadable)
}

// Send arms a write of data, copied into an owned scratch buffer so the
// caller may reuse or discard data immediately.
func (c *Conn) Send(data []byte, cb WriteFunc) error {
	if c.closed {
		return ErrClosed
	}
	if c.write.active {
		return ErrTaskInFlight
	}

	buf := c.pool.Get(len(data))
	copy(buf.Bytes(), data)
	c.write.buf = buf
	c.write.progress = 0
	c.write.writeCb = cb
	c.write.active = true

	return c.iosvc.PostJob(uintptr(c.fd), reactor.OpWrite, reactor.Persistent, c.onWritable)
}

func (c *Conn) onReadable(fd uintptr, op reactor.Op) {
	pending, err := unix.IoctlGetInt(int(fd), unix.TIOCINQ)
	if err != nil {
		c.finishRead(err)
		return
	}
	if pending == 0 {
		c.finishRead(errEOF)
		return
	}

	want := c.read.buf.Size() - c.read.progress
	if pending > want {
		pending = want
	}

	for c.read.progress < c.read.buf.Size() {
		n, _, err := unix.Recvfrom(int(fd), c.read.buf.Bytes()[c.read.progress:], unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			c.finishRead(err)
			return
		}
		if n == 0 {
			c.finishRead(errEOF)
			return
		}
		c.read.progress += n
		pending -= n
		if pending <= 0 {
			break
		}
	}

	if c.read.progress >= c.read.buf.Size() {
		c.finishRead(nil)
	}
}

func (c *Conn) finishRead(err error) {
	c.iosvc.RemoveJob(uintptr(c.fd), reactor.OpRead)
	c.read.active = false
	buf := c.read.buf
	c.read.buf = nil

	cb := c.read.readCb
	c.read.readCb = nil
	if cb == nil {
		if buf != nil {
			buf.Release()
		}
		return
	}
	if err != nil {
		cb(c, nil, err)
		if buf != nil {
			buf.Release()
		}
		return
	}
	data := append([]byte(nil), buf.Bytes()...)
	buf.Release()
	cb(c, data, nil)
}

func (c *Conn) onWritable(fd uintptr, op reactor.Op) {
	total := c.write.buf.Size()
	for c.write.progress < total {
		n, err := unix.SendmsgN(int(fd), c.write.buf.Bytes()[c.write.progress:], nil, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			c.finishWrite(err)
			return
		}
		c.write.progress += n
	}
	c.finishWrite(nil)
}

func (c *Conn) finishWrite(err error) {
	c.iosvc.RemoveJob(uintptr(c.fd), reactor.OpWrite)
	c.write.active = false
	if c.write.buf != nil {
		c.write.buf.Release()
		c.write.buf = nil
	}

	cb := c.write.writeCb
	c.write.writeCb = nil
	if cb != nil {
		cb(c, err)
	}
}

// Close removes any pending jobs, shuts down, and closes fd. Safe to
// call more than once. No callback fires after Close (invariant #3).
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.iosvc.RemoveJob(uintptr(c.fd), reactor.OpRead)
	c.iosvc.RemoveJob(uintptr(c.fd), reactor.OpWrite)
	c.read.active = false
	c.write.active = false
	c.read.readCb = nil
	c.write.writeCb = nil
	if c.read.buf != nil {
		c.read.buf.Release()
		c.read.buf = nil
	}
	if c.write.buf != nil {
		c.write.buf.Release()
		c.write.buf = nil
	}

	unix.Shutdown(c.fd, unix.SHUT_RDWR)
	return unix.Close(c.fd)
}

var errEOF = errors.New("transport: EOF")

// IsEOF reports whether err is the orderly-close sentinel Recv callbacks
// observe. It intentionally does not alias io.EOF: this is a peer-closed
// UNIX socket, not an io.Reader.
func IsEOF(err error) bool { return err == errEOF }
