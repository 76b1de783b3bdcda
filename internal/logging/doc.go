// Package logging assembles the structured slog loggers used across the
// lkspark worker runtime.
//
// It owns the console and JSON handlers, maps configured level names onto
// slog levels, fans output out to stdout/stderr and log files, and exposes
// attribute helpers so the command runner, job logs, and CLI tag records with
// the same field names. A no-op logger is provided for tests and for wiring
// code that has no logger to offer.
//
// Job logs (the raw output of build tools) are not written through this
// package; see internal/joblog. The age-based pruning joblog.Prune applies to
// them is CleanupOldLogs.
package logging
