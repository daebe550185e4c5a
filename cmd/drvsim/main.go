// File: cmd/drvsim/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// drvsim is a scriptable fake driver: it binds one UNIX domain socket,
// announces a fixed DRV_INFO command table on connect, and answers every
// DRV_COMMAND with a canned DRV_RESPONSE. Used to drive drvshell by hand
// without a real hardware driver, grounded on the same
// transport/protocol stack drvshell itself uses.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/momentics/drv-shell/pool"
	"github.com/momentics/drv-shell/protocol"
	"github.com/momentics/drv-shell/reactor"
	"github.com/momentics/drv-shell/transport"
)

func main() {
	socketPath := flag.String("socket", "", "path to create the driver's UNIX domain socket at")
	commandsSpec := flag.String("commands", "on:0:turn it on,off:0:turn it off",
		"comma-separated name:arity:description triplets announced in DRV_INFO")
	response := flag.String("response", "ok", "text prefix returned in every DRV_RESPONSE")
	flag.Parse()

	if *socketPath == "" {
		fmt.Fprintln(os.Stderr, "drvsim: -socket is required")
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "drvsim: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	commands, err := parseCommands(*commandsSpec)
	if err != nil {
		logger.Fatal("bad -commands", zap.Error(err))
	}

	svc, err := reactor.NewService()
	if err != nil {
		logger.Fatal("can't create reactor", zap.Error(err))
	}
	defer svc.Close()

	bp := pool.NewBufferPool()
	srv, err := transport.NewServer(*socketPath, svc, bp)
	if err != nil {
		logger.Fatal("can't bind socket", zap.String("path", *socketPath), zap.Error(err))
	}
	defer srv.Close()

	srv.Accept(func(c *transport.Conn) bool {
		logger.Info("driver connection accepted", zap.Int("fd", c.Fd()))
		onAccept(c, commands, *response, logger)
		return true
	})

	// The signal goroutine only writes to a pipe; the reactor goroutine
	// reads it and calls Stop.
	stopR, stopW, err := os.Pipe()
	if err != nil {
		logger.Fatal("can't create signal pipe", zap.Error(err))
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		stopW.Write([]byte{0})
	}()
	if err := svc.PostJob(uintptr(stopR.Fd()), reactor.OpRead, reactor.Oneshot, func(uintptr, reactor.Op) {
		stopR.Close()
		svc.Stop(false)
	}); err != nil {
		logger.Fatal("can't install signal handler", zap.Error(err))
	}

	logger.Info("drvsim listening", zap.String("socket", *socketPath))
	if err := svc.Run(); err != nil {
		logger.Fatal("reactor loop failed", zap.Error(err))
	}
}

func parseCommands(spec string) ([]protocol.CommandDescriptor, error) {
	var out []protocol.CommandDescriptor
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed command spec %q, want name:arity:description", part)
		}
		arity, err := strconv.ParseUint(fields[1], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("bad arity in %q: %w", part, err)
		}
		out = append(out, protocol.CommandDescriptor{Name: fields[0], Descr: fields[2], Arity: uint8(arity)})
	}
	return out, nil
}

func onAccept(c *transport.Conn, commands []protocol.CommandDescriptor, response string, logger *zap.Logger) {
	raw, err := protocol.EncodeDrvInfo(&protocol.DrvInfo{Commands: commands})
	if err != nil {
		logger.Error("can't encode DRV_INFO", zap.Error(err))
		c.Close()
		return
	}

	if err := c.Send(raw, func(c *transport.Conn, err error) {
		if err != nil {
			logger.Warn("couldn't send DRV_INFO", zap.Error(err))
			return
		}
		recvNext(c, protocol.NewReader(), response, logger)
	}); err != nil {
		logger.Warn("couldn't arm DRV_INFO send", zap.Error(err))
	}
}

func recvNext(c *transport.Conn, r *protocol.Reader, response string, logger *zap.Logger) {
	if err := c.Recv(r.Need(), func(c *transport.Conn, data []byte, err error) {
		if err != nil {
			if !transport.IsEOF(err) {
				logger.Warn("read error", zap.Error(err))
			}
			return
		}

		msg, decErr := r.Feed(data)
		if decErr != nil {
			logger.Warn("malformed input", zap.Error(decErr))
			return
		}
		if msg == nil {
			recvNext(c, r, response, logger)
			return
		}

		cmd, ok := msg.(*protocol.DrvCommand)
		if !ok {
			recvNext(c, r, response, logger)
			return
		}

		payload := []byte(fmt.Sprintf("%s (cmd %d, %d args)", response, cmd.CmdIdx, len(cmd.Args)))
		raw, err := protocol.EncodeDrvResponse(&protocol.DrvResponse{Payload: payload})
		if err != nil {
			logger.Error("can't encode DRV_RESPONSE", zap.Error(err))
			return
		}
		if err := c.Send(raw, func(c *transport.Conn, err error) {
			if err != nil {
				logger.Warn("couldn't send DRV_RESPONSE", zap.Error(err))
				return
			}
			recvNext(c, r, response, logger)
		}); err != nil {
			logger.Warn("couldn't arm DRV_RESPONSE send", zap.Error(err))
		}
	}); err != nil {
		logger.Warn("couldn't arm read", zap.Error(err))
	}
}
