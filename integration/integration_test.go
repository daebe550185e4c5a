// File: integration/integration_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// End-to-end scenarios S1-S6 from spec.md, driving the real
// reactor/transport/watch/registry/shellline stack on one side and a
// hand-rolled stand-in for cmd/drvsim (same transport.Server/protocol
// wiring, instrumented for assertions) on the other, connected through
// real UNIX domain sockets under a temp directory.

package integration

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/momentics/drv-shell/pool"
	"github.com/momentics/drv-shell/protocol"
	"github.com/momentics/drv-shell/reactor"
	"github.com/momentics/drv-shell/registry"
	"github.com/momentics/drv-shell/shellline"
	"github.com/momentics/drv-shell/transport"
	"github.com/momentics/drv-shell/watch"
)

// fakeDriver stands in for cmd/drvsim inside the test binary: it binds
// one socket, announces a command table on accept, and echoes back a
// fixed DRV_RESPONSE for every DRV_COMMAND it receives, recording each
// one for assertions.
type fakeDriver struct {
	svc    *reactor.Service
	srv    *transport.Server
	recvCh chan *protocol.DrvCommand
}

func newFakeDriver(t *testing.T, path string, commands []protocol.CommandDescriptor) *fakeDriver {
	t.Helper()
	svc, err := reactor.NewService()
	require.NoError(t, err)

	srv, err := transport.NewServer(path, svc, pool.NewBufferPool())
	require.NoError(t, err)

	fd := &fakeDriver{svc: svc, srv: srv, recvCh: make(chan *protocol.DrvCommand, 8)}

	srv.Accept(func(c *transport.Conn) bool {
		raw, err := protocol.EncodeDrvInfo(&protocol.DrvInfo{Commands: commands})
		require.NoError(t, err)
		require.NoError(t, c.Send(raw, func(c *transport.Conn, err error) {
			if err == nil {
				fd.recvNext(c, protocol.NewReader())
			}
		}))
		return true
	})

	return fd
}

func (fd *fakeDriver) recvNext(c *transport.Conn, r *protocol.Reader) {
	c.Recv(r.Need(), func(c *transport.Conn, data []byte, err error) {
		if err != nil {
			return
		}
		msg, decErr := r.Feed(data)
		if decErr != nil {
			return
		}
		if msg == nil {
			fd.recvNext(c, r)
			return
		}
		cmd, ok := msg.(*protocol.DrvCommand)
		if !ok {
			fd.recvNext(c, r)
			return
		}
		fd.recvCh <- cmd

		raw, err := protocol.EncodeDrvResponse(&protocol.DrvResponse{Payload: []byte("ok")})
		if err != nil {
			return
		}
		c.Send(raw, func(c *transport.Conn, err error) {
			if err == nil {
				fd.recvNext(c, r)
			}
		})
	})
}

func (fd *fakeDriver) run(t *testing.T) {
	t.Helper()
	go func() {
		_ = fd.svc.Run()
	}()
	t.Cleanup(func() { fd.svc.Stop(false); fd.svc.Close() })
}

func pumpUntil(t *testing.T, svc *reactor.Service, done func() bool) {
	t.Helper()
	for i := 0; i < 2000 && !done(); i++ {
		if _, err := svc.RunOnce(20); err != nil {
			t.Fatalf("reactor poll: %v", err)
		}
	}
	require.True(t, done(), "condition never became true")
}

func TestEndToEndScenarios(t *testing.T) {
	dir := t.TempDir()

	svc, err := reactor.NewService()
	require.NoError(t, err)
	defer svc.Close()

	reg := registry.New(svc, pool.NewBufferPool(), dir, zaptest.NewLogger(t))

	var out bytes.Buffer
	front := shellline.New(reg, &out)

	dw, err := watch.New(svc)
	require.NoError(t, err)
	defer dw.Close()

	require.NoError(t, dw.Watch(dir, watch.Handler{
		OnCreated:     reg.OnCreated,
		OnDeleted:     reg.OnDeleted,
		OnSelfDeleted: reg.OnSelfDeleted,
	}))

	sockPath := filepath.Join(dir, "printer.3.drv")
	driver := newFakeDriver(t, sockPath, []protocol.CommandDescriptor{
		{Name: "p", Descr: "print", Arity: 1},
	})
	driver.run(t)

	// S1 Discovery: creating the driver's socket surfaces exactly one
	// entry in `list` once its DRV_INFO round-trip completes.
	pumpUntil(t, svc, func() bool {
		snap := reg.Snapshot()
		return len(snap) == 1 && len(snap[0].Commands) == 1
	})
	out.Reset()
	front.HandleLine("list")
	require.Equal(t,
		"\nDriver: printer\nSlot: 3\np <arity: 1> --- print\n"+shellline.Prompt,
		out.String())

	// S2 Command: a well-formed command round-trips to the driver and
	// its response is printed.
	out.Reset()
	front.HandleLine("cmd printer 3 p hello")
	// The shell's write only goes out from its reactor's callback, so the
	// shell reactor is pumped while waiting for the driver to see it.
	var gotCmd *protocol.DrvCommand
	deadline := time.Now().Add(5 * time.Second)
	for gotCmd == nil {
		select {
		case gotCmd = <-driver.recvCh:
		default:
			if time.Now().After(deadline) {
				t.Fatal("driver never received DRV_COMMAND")
			}
			if _, err := svc.RunOnce(20); err != nil {
				t.Fatalf("reactor poll: %v", err)
			}
		}
	}
	require.Equal(t, uint32(0), gotCmd.CmdIdx)
	require.Equal(t, [][]byte{[]byte("hello")}, gotCmd.Args)

	pumpUntil(t, svc, func() bool { return out.String() == "ok\n"+shellline.Prompt })

	// S3 Unknown driver: rejected synchronously, no bytes sent anywhere.
	out.Reset()
	front.HandleLine("cmd nope 0 x")
	require.Equal(t, shellline.InvalidMsg+shellline.Prompt, out.String())
	select {
	case <-driver.recvCh:
		t.Fatal("driver should not have received anything for an unknown driver")
	default:
	}

	// S4 Arity overflow: command "p" only accepts one argument.
	out.Reset()
	front.HandleLine("cmd printer 3 p a b")
	require.Equal(t, shellline.InvalidMsg+shellline.Prompt, out.String())

	// S5 Delete event: removing the socket file drops the driver from
	// the registry; no reconnect is attempted.
	require.NoError(t, os.Remove(sockPath))
	pumpUntil(t, svc, func() bool { return len(reg.Snapshot()) == 0 })
	out.Reset()
	front.HandleLine("list")
	require.Equal(t, shellline.Prompt, out.String())

	// S6 Self-delete: removing the base directory stops the reactor
	// loop without draining, and is observable via SelfDeleted.
	require.NoError(t, os.RemoveAll(dir))
	pumpUntil(t, svc, reg.SelfDeleted)
	require.True(t, reg.SelfDeleted())
}
