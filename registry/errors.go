// File: registry/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package registry

import "errors"

var (
	// ErrUnknownDriver is returned by Dispatch when no driver is
	// registered at (name, slot).
	ErrUnknownDriver = errors.New("registry: unknown driver")

	// ErrUnknownCommand is returned by Dispatch when the driver has no
	// command by that name in its announced DRV_INFO table.
	ErrUnknownCommand = errors.New("registry: unknown command")

	// ErrTooManyArguments is returned by Dispatch when more arguments
	// were supplied than the command's declared arity allows.
	ErrTooManyArguments = errors.New("registry: too many arguments")

	// ErrDuplicateDriver marks the structural-invariant violation the
	// C original treats as abort()-worthy: two sockets resolving to the
	// same (name, slot) identity. Registry.OnCreated reports it through
	// OnFatal rather than panicking directly.
	ErrDuplicateDriver = errors.New("registry: duplicate driver record")

	// ErrUnknownSignature names a driver sending a signature byte the
	// protocol doesn't define. Nothing in this package returns it: such
	// a byte surfaces as protocol.ErrMalformed from Reader.Feed, and the
	// registry reconnects.
	ErrUnknownSignature = errors.New("registry: unknown protocol signature")
)
