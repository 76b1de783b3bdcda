package main

import (
	"fmt"

	"lkspark/internal/command"
)

// exitStatusError carries a child's exit status out to main so the CLI exits
// the same way the tool did.
type exitStatusError struct {
	status int
}

func (e *exitStatusError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.status)
}

// code maps the status onto a process exit code. A tool that never started
// is reported the way shells report "command not found".
func (e *exitStatusError) code() int {
	switch {
	case e.status == command.SpawnFailed:
		return 127
	case e.status < 0 || e.status > 255:
		return 1
	default:
		return e.status
	}
}
