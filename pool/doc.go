// Package pool implements the growable byte buffer and the size-classed
// buffer pool the connection layer checks its send/recv scratch space
// out of.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pool
