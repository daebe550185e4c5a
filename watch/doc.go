// Package watch drives an inotify watch on the driver-socket base
// directory, dispatching create/delete/self-delete events to a Handler
// in kernel order. Grounded on
// original_source/supertel/task2/src/shell.c's base_dir_event /
// base_dir_single_event drain loop.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package watch
