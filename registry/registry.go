// File: registry/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Registry tracks driver sockets discovered under one base directory,
// hashed into buckets by Pearson hash of "<name><slot>" exactly as
// original_source/supertel/task2/src/shell.c's avl_tree_add_or_get /
// base_dir_smth_created / base_dir_smth_deleted do, generalized from an
// AVL tree keyed by hash to a Go map of hash-bucket collision lists
// (the shape spec's discovery-completeness and duplicate-detection
// properties are defined over).

package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/momentics/drv-shell/pool"
	"github.com/momentics/drv-shell/protocol"
	"github.com/momentics/drv-shell/reactor"
	"github.com/momentics/drv-shell/transport"
)

// ResponseFunc delivers a driver's DRV_RESPONSE payload to whatever
// frontend issued the command.
type ResponseFunc func(drv string, slot uint32, payload []byte)

// DispatchErrorFunc delivers a human-readable dispatch failure, matching
// shell.c's "Repeat your command" hint from writer().
type DispatchErrorFunc func(drv string, slot uint32, msg string)

// Registry owns every discovered driver connection. All of its methods
// are called from the reactor's single goroutine; there is no locking.
type Registry struct {
	dir   string
	iosvc *reactor.Service
	pool  *pool.BufferPool
	log   *zap.Logger

	buckets map[byte][]*Driver

	selfDeleted bool

	// OnResponse and OnDispatchError are set by the frontend (shellline
	// or a test harness) to observe the asynchronous outcome of a
	// Dispatch call.
	OnResponse      ResponseFunc
	OnDispatchError DispatchErrorFunc

	// OnFatal receives structural invariant violations — currently only
	// a duplicate (name, slot) driver record. The C original abort()s;
	// this implementation leaves the decision (log-and-exit, or not) to
	// the caller, matching zap.Fatal's own os.Exit(1) when the caller
	// chooses to wire OnFatal to it.
	OnFatal func(error)
}

// New constructs an empty Registry rooted at dir.
func New(iosvc *reactor.Service, bp *pool.BufferPool, dir string, log *zap.Logger) *Registry {
	return &Registry{
		dir:     dir,
		iosvc:   iosvc,
		pool:    bp,
		log:     log,
		buckets: make(map[byte][]*Driver),
	}
}

// SelfDeleted reports whether OnSelfDeleted has fired.
func (r *Registry) SelfDeleted() bool { return r.selfDeleted }

func (r *Registry) find(name string, slot uint32) (byte, int) {
	b := bucketID(name, slot)
	for i, d := range r.buckets[b] {
		if d.Name == name && d.Slot == slot {
			return b, i
		}
	}
	return b, -1
}

func (r *Registry) fatal(err error) {
	r.log.Error("structural invariant violated", zap.Error(err))
	if r.OnFatal != nil {
		r.OnFatal(err)
	}
}

// OnCreated handles one inotify IN_CREATE event for name (a bare
// filename within dir). Non-socket files and names that don't match the
// "<name>.<slot>.drv" grammar are silently ignored, matching
// check_unix_socket / parse_unix_socket_name in shell.c. A (name, slot)
// collision is reported through OnFatal.
func (r *Registry) OnCreated(name string) {
	full := filepath.Join(r.dir, name)

	fi, err := os.Lstat(full)
	if err != nil {
		r.log.Debug("can't stat candidate socket", zap.String("name", name), zap.Error(err))
		return
	}
	if fi.Mode()&os.ModeSocket == 0 {
		r.log.Debug("not a UNIX socket", zap.String("name", name))
		return
	}

	driverName, slot, ok := ParseSocketName(name)
	if !ok {
		r.log.Debug("not a valid driver socket name", zap.String("name", name))
		return
	}

	bucket, idx := r.find(driverName, slot)
	if idx >= 0 {
		r.fatal(fmt.Errorf("%w: %s at slot %d", ErrDuplicateDriver, driverName, slot))
		return
	}

	d := &Driver{Name: driverName, Slot: slot, client: transport.NewClient(r.iosvc, r.pool)}
	r.buckets[bucket] = append(r.buckets[bucket], d)

	if err := d.client.Connect(full, func(c *transport.Conn, err error) { r.onConnect(d, err) }); err != nil {
		r.fatal(fmt.Errorf("connect to %s: %w", name, err))
	}
}

// OnDeleted handles one inotify IN_DELETE event, closing and forgetting
// the matching driver record, if any.
func (r *Registry) OnDeleted(name string) {
	driverName, slot, ok := ParseSocketName(name)
	if !ok {
		r.log.Debug("not a valid driver socket name", zap.String("name", name))
		return
	}

	bucket, idx := r.find(driverName, slot)
	if idx < 0 {
		r.log.Warn("UNIX socket name was not registered", zap.String("name", name))
		return
	}

	list := r.buckets[bucket]
	list[idx].client.Close()
	r.buckets[bucket] = append(list[:idx], list[idx+1:]...)
}

// OnSelfDeleted handles the base directory itself being removed, and
// stops the reactor loop without draining pending readiness events,
// matching shell.c's base_dir_self_deleted -> io_service_stop(sh->iosvc,
// false).
func (r *Registry) OnSelfDeleted() {
	r.log.Warn("base directory removed, stopping")
	r.selfDeleted = true
	r.iosvc.Stop(false)
}

func (r *Registry) onConnect(d *Driver, err error) {
	if err != nil {
		r.log.Warn("can't connect to driver", zap.String("driver", d.Name), zap.Uint32("slot", d.Slot), zap.Error(err))
		return
	}
	d.reader = protocol.NewReader()
	r.armNextRead(d)
}

// armNextRead keeps a Driver's connection continuously reading: once
// connected, it always has exactly one Recv task in flight, decoding
// whatever the driver sends next. This is a deliberate generalization of
// shell.c's request-then-read shape (see SPEC_FULL.md §4.6.3's resolved
// Open Question) so a stray or repeated message never wedges the
// connection.
func (r *Registry) armNextRead(d *Driver) {
	conn := d.client.Conn()
	if conn == nil {
		return
	}
	need := d.reader.Need()
	if err := conn.Recv(need, func(c *transport.Conn, data []byte, err error) {
		r.onDriverData(d, data, err)
	}); err != nil {
		r.log.Warn("couldn't arm read", zap.String("driver", d.Name), zap.Error(err))
	}
}

func (r *Registry) onDriverData(d *Driver, data []byte, err error) {
	if err != nil {
		if transport.IsEOF(err) {
			r.log.Warn("EOF from driver, possibly a delete will take place soon",
				zap.String("driver", d.Name), zap.Uint32("slot", d.Slot))
			return
		}
		r.log.Warn("error receiving from driver", zap.String("driver", d.Name), zap.Error(err))
		r.reconnect(d)
		return
	}

	msg, decErr := d.reader.Feed(data)
	if decErr != nil {
		r.log.Warn("invalid protocol data from driver, reconnecting",
			zap.String("driver", d.Name), zap.Uint32("slot", d.Slot), zap.Error(decErr))
		r.reconnect(d)
		return
	}
	if msg == nil {
		r.armNextRead(d)
		return
	}

	switch m := msg.(type) {
	case *protocol.DrvInfo:
		d.commands = m.Commands
		r.log.Info("driver announced commands",
			zap.String("driver", d.Name), zap.Uint32("slot", d.Slot), zap.Int("commands", len(m.Commands)))
	case *protocol.DrvResponse:
		if r.OnResponse != nil {
			r.OnResponse(d.Name, d.Slot, m.Payload)
		}
	case *protocol.DrvCommand:
		r.log.Warn("unexpected DRV_COMMAND from driver, reconnecting", zap.String("driver", d.Name))
		r.reconnect(d)
		return
	}

	r.armNextRead(d)
}

func (r *Registry) reconnect(d *Driver) {
	if err := d.client.Reconnect(); err != nil {
		r.log.Warn("couldn't reconnect to driver", zap.String("driver", d.Name), zap.Uint32("slot", d.Slot), zap.Error(err))
	}
}

// Dispatch validates and sends cmd to driver drv at slot with args.
// Validation errors (unknown driver, unknown command, too many
// arguments) are returned synchronously. A successful send's outcome —
// driver response, or a send/reconnect failure — arrives later through
// OnResponse / OnDispatchError, since it depends on the reactor's
// asynchronous I/O.
func (r *Registry) Dispatch(drv string, slot uint32, cmd string, args [][]byte) error {
	bucket, idx := r.find(drv, slot)
	if idx < 0 {
		return fmt.Errorf("%w: %s at slot %d", ErrUnknownDriver, drv, slot)
	}
	d := r.buckets[bucket][idx]

	cmdIdx, ok := d.commandIndex(cmd)
	if !ok {
		return fmt.Errorf("%w: %s for driver %s", ErrUnknownCommand, cmd, drv)
	}
	arity := int(d.commands[cmdIdx].Arity)
	if len(args) > arity {
		return ErrTooManyArguments
	}

	encoded, err := protocol.EncodeDrvCommand(&protocol.DrvCommand{CmdIdx: uint32(cmdIdx), Args: args})
	if err != nil {
		return err
	}

	return d.client.Conn().Send(encoded, func(c *transport.Conn, err error) {
		r.onSendComplete(d, err)
	})
}

func (r *Registry) onSendComplete(d *Driver, err error) {
	if err == nil {
		return
	}

	r.log.Warn("couldn't send to driver", zap.String("driver", d.Name), zap.Uint32("slot", d.Slot), zap.Error(err))
	if rerr := d.client.Reconnect(); rerr != nil {
		r.log.Warn("couldn't reconnect to driver", zap.String("driver", d.Name), zap.Error(rerr))
		if r.OnDispatchError != nil {
			r.OnDispatchError(d.Name, d.Slot, "couldn't reconnect to driver")
		}
		return
	}
	if r.OnDispatchError != nil {
		r.OnDispatchError(d.Name, d.Slot, "repeat your command")
	}
}

// DriverSummary is a read-only snapshot of one registered driver, used
// by shellline's "list" command.
type DriverSummary struct {
	Name     string
	Slot     uint32
	Commands []protocol.CommandDescriptor
}

// Snapshot returns every currently registered driver. It is not sorted:
// buckets come in Go map iteration order, which is unspecified, and
// drivers within one bucket in insertion order.
func (r *Registry) Snapshot() []DriverSummary {
	var out []DriverSummary
	for _, list := range r.buckets {
		for _, d := range list {
			out = append(out, DriverSummary{Name: d.Name, Slot: d.Slot, Commands: d.commands})
		}
	}
	return out
}
