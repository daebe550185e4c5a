// File: transport/transport_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/drv-shell/pool"
	"github.com/momentics/drv-shell/reactor"
)

func newTestConn(t *testing.T) (*Conn, int, *reactor.Service) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))

	svc, err := reactor.NewService()
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	bp := pool.NewBufferPool()
	c := newConn(fds[0], svc, bp)
	t.Cleanup(func() { c.Close() })
	return c, fds[1], svc
}

func TestConnRecvRejectsSecondInFlightTask(t *testing.T) {
	c, peer, _ := newTestConn(t)
	defer unix.Close(peer)

	require.NoError(t, c.Recv(4, func(*Conn, []byte, error) {}))
	require.ErrorIs(t, c.Recv(4, func(*Conn, []byte, error) {}), ErrTaskInFlight)
}

func TestConnSendRejectsSecondInFlightTask(t *testing.T) {
	c, peer, _ := newTestConn(t)
	defer unix.Close(peer)

	require.NoError(t, c.Send([]byte("hi"), func(*Conn, error) {}))
	require.ErrorIs(t, c.Send([]byte("bye"), func(*Conn, error) {}), ErrTaskInFlight)
}

func TestConnCloseSuppressesFurtherCallbacks(t *testing.T) {
	c, peer, _ := newTestConn(t)
	defer unix.Close(peer)

	called := false
	require.NoError(t, c.Recv(4, func(*Conn, []byte, error) { called = true }))
	require.NoError(t, c.Close())

	// A second Close must be a safe no-op, and the pending callback must
	// never fire once the Conn is closed.
	require.NoError(t, c.Close())
	require.False(t, called)
}

func TestConnRecvSendRoundTrip(t *testing.T) {
	c, peer, svc := newTestConn(t)

	msg := []byte("ping")
	received := make(chan []byte, 1)
	require.NoError(t, c.Recv(len(msg), func(_ *Conn, data []byte, err error) {
		require.NoError(t, err)
		received <- data
	}))

	n, err := unix.Write(peer, msg)
	require.NoError(t, err)
	require.Equal(t, len(msg), n)

	deadline := 0
	for len(received) == 0 && deadline < 1000 {
		if _, err := svc.RunOnce(0); err != nil {
			break
		}
		deadline++
	}

	select {
	case got := <-received:
		require.Equal(t, msg, got)
	default:
		t.Fatal("recv callback never fired")
	}
	unix.Close(peer)
}
