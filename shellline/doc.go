// Package shellline is the thin, single-threaded REPL frontend over a
// registry.Registry: it tokenizes a line, dispatches list/help/cmd, and
// prints results and prompts to an io.Writer. Grounded line-for-line on
// original_source/supertel/task2/src/shell.c's on_input /
// run_command_from_input / cmd_list / cmd_help / cmd_cmd / finish_cmd.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package shellline
