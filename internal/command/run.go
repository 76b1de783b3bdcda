package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"lkspark/internal/logging"
)

// Result is the outcome of Run and SafeRun.
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// Spawned reports whether a process was created.
func (r Result) Spawned() bool { return r.ExitStatus != SpawnFailed }

// SubprocessError reports a command whose exit status was not among the
// statuses the caller expected. It carries the full outcome for diagnostics.
type SubprocessError struct {
	Stdout  string
	Stderr  string
	Ret     int
	Command []string
}

func (e *SubprocessError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", FormatCommand(e.Command), e.Ret)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

// Run executes argv without a shell, writes in to its standard input, and
// returns the complete decoded stdout and stderr with the exit status.
//
// A command that cannot be started (missing, not executable, empty argv)
// yields ExitStatus SpawnFailed and a nil error. The returned error is
// reserved for problems on the caller's side, such as an unreadable Stream
// input. stdin, stdout, and stderr are serviced concurrently, so large input
// cannot deadlock against large output.
func (r *Runner) Run(ctx context.Context, argv []string, in Input) (Result, error) {
	stdin, err := resolveInput(in)
	if err != nil {
		return Result{ExitStatus: SpawnFailed}, err
	}

	cmd, err := r.command(ctx, argv)
	if err != nil {
		r.logger.Debug("command not started", logging.Error(err))
		return Result{ExitStatus: SpawnFailed}, nil
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{ExitStatus: SpawnFailed}, fmt.Errorf("run %s: %w", argv[0], ctxErr)
		}
		r.logger.Debug("command spawn failed",
			logging.Strings(logging.FieldCommand, argv),
			logging.Error(err),
		)
		return Result{ExitStatus: SpawnFailed}, nil
	}
	waitErr := cmd.Wait()

	res := Result{
		Stdout:     decode(stdout.Bytes()),
		Stderr:     decode(stderr.Bytes()),
		ExitStatus: exitStatus(cmd.ProcessState),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("run %s: %w", argv[0], ctxErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return res, fmt.Errorf("wait for %s: %w", argv[0], waitErr)
		}
	}
	r.logger.Debug("command finished",
		logging.Strings(logging.FieldCommand, argv),
		logging.Int(logging.FieldExitStatus, res.ExitStatus),
	)
	return res, nil
}

// SafeRun runs argv like Run and returns a *SubprocessError when the exit
// status is not one of expected. With no expected values, only 0 is accepted.
// A command that could not be started has status SpawnFailed and fails the
// check unless SpawnFailed is expected.
func (r *Runner) SafeRun(ctx context.Context, argv []string, in Input, expected ...int) (Result, error) {
	if len(expected) == 0 {
		expected = []int{0}
	}
	res, err := r.Run(ctx, argv, in)
	if err != nil {
		return res, err
	}
	if !slices.Contains(expected, res.ExitStatus) {
		return res, &SubprocessError{
			Stdout:  res.Stdout,
			Stderr:  res.Stderr,
			Ret:     res.ExitStatus,
			Command: slices.Clone(argv),
		}
	}
	return res, nil
}
