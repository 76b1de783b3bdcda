// Package main hosts the lkspark CLI entrypoint and command graph.
//
// The Cobra command tree loads the worker configuration, checks the host is
// ready for jobs, and runs external tools either directly or with their
// output streamed into a per-job log that is recorded in the command history.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// only surfaced here.
package main
