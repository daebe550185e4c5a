// File: transport/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "errors"

var (
	// ErrTaskInFlight is returned by Send/Recv when the same-direction
	// task is already active on this Conn. The C original silently
	// overwrote an in-flight write; this rejects instead (see
	// SPEC_FULL.md §4.3, §9).
	ErrTaskInFlight = errors.New("transport: task already in flight")

	// ErrClosed is returned by Send/Recv on a Conn that has been
	// explicitly closed. Seeing EOF does not close a Conn.
	ErrClosed = errors.New("transport: connection closed")

	// ErrNotConnected names a Client with no connection. No function in
	// this package returns it; Client.Conn is nil in that state.
	ErrNotConnected = errors.New("transport: not connected")
)
