//go:build linux

// File: reactor/service_linux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPostJobReplacesExistingRegistration(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)
	defer svc.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	var firstCalls, secondCalls int
	require.NoError(t, svc.PostJob(uintptr(fds[0]), OpRead, Persistent, func(uintptr, Op) { firstCalls++ }))
	require.NoError(t, svc.PostJob(uintptr(fds[0]), OpRead, Persistent, func(uintptr, Op) { secondCalls++ }))

	_, err = unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	_, err = svc.RunOnce(1000)
	require.NoError(t, err)

	require.Equal(t, 0, firstCalls, "the first registration must have been replaced, not both invoked")
	require.Equal(t, 1, secondCalls)
}

func TestOneshotJobIsRemovedBeforeCallbackRuns(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)
	defer svc.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	calls := 0
	require.NoError(t, svc.PostJob(uintptr(fds[0]), OpRead, Oneshot, func(fd uintptr, op Op) {
		calls++
		// Re-posting from inside the callback must not clash with the
		// (fd, op) key the dispatcher is still iterating.
		require.NoError(t, svc.PostJob(fd, op, Oneshot, func(uintptr, Op) { calls++ }))
	}))

	_, err = unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)
	_, err = svc.RunOnce(1000)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	_, err = unix.Write(fds[1], []byte("y"))
	require.NoError(t, err)
	_, err = svc.RunOnce(1000)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestRemoveJobStopsDelivery(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)
	defer svc.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	calls := 0
	require.NoError(t, svc.PostJob(uintptr(fds[0]), OpRead, Persistent, func(uintptr, Op) { calls++ }))
	svc.RemoveJob(uintptr(fds[0]), OpRead)

	_, err = unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)
	_, err = svc.RunOnce(200)
	require.NoError(t, err)

	require.Equal(t, 0, calls)
}
