// Package command runs the external build and packaging tools a spark worker
// drives, and reports what happened in a form callers can branch on.
//
// Three entry points share one Runner:
//
//   - Run captures stdout and stderr completely and returns them with the exit
//     status. A tool that cannot be started is not an error: the status is
//     SpawnFailed (-1).
//   - SafeRun wraps Run for tools with an exit-code contract and returns a
//     *SubprocessError carrying the full outcome when the status is not one
//     of the expected values.
//   - RunLogged merges stdout and stderr into one pipe and appends everything
//     the child writes to a job log sink as it arrives, so partial output
//     survives a crash of either side. A failing child is recorded in the log
//     and returned as a status, never as an error.
//
// Child output is decoded as UTF-8; invalid sequences become U+FFFD rather
// than failing the call. Commands are argument vectors executed without a
// shell; Split turns a command line into one using shell word rules.
//
// Prefer this package over ad-hoc exec.Command usage so spawn failures,
// unexpected statuses, and job log annotations stay consistent.
package command
