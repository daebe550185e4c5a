// Package reactor provides the single-threaded, epoll-based readiness
// multiplexer that waits on every file descriptor the driver shell
// touches: UNIX socket connections, the inotify instance, and stdin. It
// only registers descriptors; closing them is left to their owners.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package reactor
