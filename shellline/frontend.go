// File: shellline/frontend.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package shellline

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/momentics/drv-shell/control"
	"github.com/momentics/drv-shell/protocol"
	"github.com/momentics/drv-shell/registry"
)

const (
	// Prompt is printed after every command completes, matching PROMPT
	// in shell.c.
	Prompt = "> "

	// HelpMsg is the exact text cmd_help prints, byte for byte.
	HelpMsg = "Commands:\n" +
		"list --- list all drivers\n" +
		"help --- print this message\n" +
		"cmd drv slot drv_cmd ... --- send command drv_cmd to driver drv at slot with arguments\n"

	// InvalidMsg is printed for any malformed or unrecognized command.
	InvalidMsg = "Invalid command\n"
)

const (
	listCmd = "list"
	helpCmd = "help"
	cmdCmd  = "cmd"
)

// Frontend dispatches parsed command lines against a registry.Registry
// and writes results, prompts, and errors to Out. It wires itself as the
// registry's OnResponse/OnDispatchError sink so an in-flight Dispatch's
// asynchronous outcome prints exactly where the C original's
// reader_response/writer would have.
type Frontend struct {
	Reg *registry.Registry
	Out io.Writer

	// Metrics, if set, is incremented on every dispatch outcome
	// ("commands.dispatched" / "commands.failed"). Left nil by New;
	// cmd/drvshell wires it after construction so tests that don't care
	// about metrics don't have to build a registry just to satisfy the
	// field.
	Metrics *control.MetricsRegistry
}

// New constructs a Frontend over reg, writing to out, and wires reg's
// asynchronous response/error callbacks to print through it.
func New(reg *registry.Registry, out io.Writer) *Frontend {
	f := &Frontend{Reg: reg, Out: out}
	reg.OnResponse = f.onResponse
	reg.OnDispatchError = f.onDispatchError
	return f
}

// HandleLine tokenizes and dispatches one input line exactly like
// run_command_from_input.
func (f *Frontend) HandleLine(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		f.invalid()
		return
	}

	switch fields[0] {
	case listCmd:
		f.list()
	case helpCmd:
		f.help()
	case cmdCmd:
		f.cmd(fields[1:])
	default:
		f.invalid()
	}
}

func (f *Frontend) list() {
	fmt.Fprint(f.Out, f.List())
	f.finish()
}

// List formats every registered driver the way print_drv does: a
// Driver/Slot header followed directly by its command lines, with no
// intervening "Commands:" line — print_drv's DRIVER_POST macro is
// defined in shell.c but never appears in its fprintf format string.
func (f *Frontend) List() string {
	var b strings.Builder
	for _, d := range f.Reg.Snapshot() {
		fmt.Fprintf(&b, "\nDriver: %s\nSlot: %d\n", d.Name, d.Slot)
		for _, c := range d.Commands {
			fmt.Fprintf(&b, "%s <arity: %d> --- %s\n", c.Name, c.Arity, c.Descr)
		}
	}
	return b.String()
}

func (f *Frontend) help() {
	fmt.Fprint(f.Out, HelpMsg)
	f.finish()
}

// Help returns the exact help text (for testing and non-stdout embedders).
func (f *Frontend) Help() string { return HelpMsg }

func (f *Frontend) invalid() {
	fmt.Fprint(f.Out, InvalidMsg)
	f.finish()
}

func (f *Frontend) finish() {
	fmt.Fprint(f.Out, Prompt)
}

// cmd parses "drv slot drv_cmd [args...]" and dispatches. Validation
// failures print InvalidMsg immediately; a successful dispatch prints
// nothing until the driver's response (or a send failure) arrives
// asynchronously through onResponse/onDispatchError.
func (f *Frontend) cmd(args []string) {
	if len(args) < 3 {
		f.invalid()
		return
	}
	drv, slotStr, drvCmd := args[0], args[1], args[2]

	slot, err := strconv.ParseUint(slotStr, 10, 32)
	if err != nil {
		f.invalid()
		return
	}

	cmdArgs := make([][]byte, 0, len(args)-3)
	for _, a := range args[3:] {
		if len(a) > protocol.MaxArgLen {
			f.invalid()
			return
		}
		cmdArgs = append(cmdArgs, []byte(a))
	}

	if err := f.Reg.Dispatch(drv, uint32(slot), drvCmd, cmdArgs); err != nil {
		if f.Metrics != nil {
			f.Metrics.Incr("commands.failed", 1)
		}
		f.invalid()
		return
	}
	if f.Metrics != nil {
		f.Metrics.Incr("commands.dispatched", 1)
	}
}

func (f *Frontend) onResponse(drv string, slot uint32, payload []byte) {
	fmt.Fprintf(f.Out, "%s\n", payload)
	f.finish()
}

func (f *Frontend) onDispatchError(drv string, slot uint32, msg string) {
	if f.Metrics != nil {
		f.Metrics.Incr("commands.failed", 1)
	}
	fmt.Fprintf(f.Out, "%s\n", msg)
	f.finish()
}
