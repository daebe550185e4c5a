// File: registry/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package registry

import (
	"github.com/momentics/drv-shell/protocol"
	"github.com/momentics/drv-shell/transport"
)

// Driver is one connected driver socket, keyed by (Name, Slot). It owns
// exactly one transport.Client and the incremental protocol.Reader
// decoding whatever that client's Conn receives.
type Driver struct {
	Name string
	Slot uint32

	client   *transport.Client
	reader   *protocol.Reader
	commands []protocol.CommandDescriptor
}

// Commands returns the command table the driver announced in its
// DRV_INFO message. Empty until that message has arrived.
func (d *Driver) Commands() []protocol.CommandDescriptor {
	return d.commands
}

func (d *Driver) commandIndex(name string) (int, bool) {
	for i, c := range d.commands {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}
