// Package joblog provides the append-only per-job log file that
// command.RunLogged writes child output into.
//
// A job log is owned by exactly one writer for as long as it is open. The
// ownership is an exclusive flock on a sibling lock file, so a second worker
// process pointed at the same job fails fast with ErrLocked instead of
// interleaving output.
package joblog
