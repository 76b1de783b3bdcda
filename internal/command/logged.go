package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"lkspark/internal/logging"
)

// LoggedOptions tunes a single RunLogged call.
type LoggedOptions struct {
	// CaptureOutput also returns everything written to the sink.
	CaptureOutput bool
	// Dir is the child's working directory; empty means the caller's.
	Dir string
	// Env holds KEY=VALUE overrides on top of the inherited environment.
	Env []string
}

// LoggedResult is the outcome of RunLogged.
type LoggedResult struct {
	ExitStatus int
	// Output is the combined child output, only set with CaptureOutput.
	Output string
}

// RunLogged executes argv with stdout and stderr merged and appends the
// output to sink as it is produced.
//
// The pipe is polled with the runner's poll timeout; when nothing arrives the
// runner sleeps for the idle interval (cut short if the child exits) instead
// of spinning. After the child exits the pipe is drained once more so output
// written just before exit is not lost.
//
// A nonzero exit is not an error: a "Command ... failed with error code N"
// line is appended to sink and the status returned. If the child cannot be
// started the note names the cause, ExitStatus is SpawnFailed, and the error
// is a *SpawnError. A failing sink does not stop the child from being drained;
// the first write error is returned after it exits.
func (r *Runner) RunLogged(ctx context.Context, sink io.Writer, argv []string, opts LoggedOptions) (LoggedResult, error) {
	if sink == nil {
		return LoggedResult{ExitStatus: SpawnFailed}, errors.New("log sink is required")
	}
	out := newLogWriter(sink, opts.CaptureOutput)

	cmd, err := r.command(ctx, argv)
	if err != nil {
		return r.spawnFailed(out, argv, err)
	}

	reader, writeEnd, err := openPipe()
	if err != nil {
		return r.spawnFailed(out, argv, fmt.Errorf("create output pipe: %w", err))
	}
	defer reader.Close()

	cmd.Stdout = writeEnd
	cmd.Stderr = writeEnd
	cmd.Dir = opts.Dir
	cmd.Env = r.childEnv(opts.Env)

	startErr := cmd.Start()
	// The child holds its own copy; ours must go so EOF can be observed.
	_ = writeEnd.Close()
	if startErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return LoggedResult{ExitStatus: SpawnFailed}, fmt.Errorf("run %s: %w", argv[0], ctxErr)
		}
		return r.spawnFailed(out, argv, startErr)
	}

	started := time.Now()
	r.logger.Debug("logged command started",
		logging.Strings(logging.FieldCommand, argv),
		logging.Int("pid", cmd.Process.Pid),
	)

	exited := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(exited)
	}()

	streamErr := r.stream(reader, exited, out)
	// Unblocks a child still writing if streaming stopped early.
	_ = reader.Close()
	<-exited

	status := exitStatus(cmd.ProcessState)
	out.flush()
	if status != 0 {
		out.note(fmt.Sprintf("Command %s failed with error code %d", FormatCommand(argv), status))
	}

	r.logger.Info("logged command finished",
		logging.Strings(logging.FieldCommand, argv),
		logging.Int(logging.FieldExitStatus, status),
		logging.Duration("duration", time.Since(started)),
	)

	res := LoggedResult{ExitStatus: status, Output: out.captured()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("run %s: %w", argv[0], ctxErr)
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, fmt.Errorf("wait for %s: %w", argv[0], waitErr)
	}
	if streamErr != nil {
		return res, streamErr
	}
	if err := out.err(); err != nil {
		return res, fmt.Errorf("write job log: %w", err)
	}
	return res, nil
}

func (r *Runner) spawnFailed(out *logWriter, argv []string, cause error) (LoggedResult, error) {
	spawnErr := &SpawnError{Command: argv, Err: cause}
	out.note(fmt.Sprintf("Command %s could not be started: %v", FormatCommand(argv), cause))
	r.logger.Warn("logged command could not be started",
		logging.Strings(logging.FieldCommand, argv),
		logging.Error(cause),
	)
	return LoggedResult{ExitStatus: SpawnFailed, Output: out.captured()}, spawnErr
}

// stream moves output from src to dst until exited is closed and the final
// drain is done. It never returns before exited is closed unless polling or
// reading the pipe fails.
func (r *Runner) stream(src PollableReader, exited <-chan struct{}, dst *logWriter) error {
	eof := false
	for {
		if eof {
			// Nothing more can arrive; only the exit is outstanding.
			<-exited
			return nil
		}

		ready, err := src.WaitReadable(r.pollTimeout)
		if err != nil {
			return fmt.Errorf("poll child output: %w", err)
		}
		if ready {
			if eof, err = pump(src, dst); err != nil {
				return err
			}
		} else {
			timer := time.NewTimer(r.idleSleep)
			select {
			case <-exited:
			case <-timer.C:
			}
			timer.Stop()
		}

		select {
		case <-exited:
			if eof {
				return nil
			}
			return r.drain(src, dst)
		default:
		}
	}
}

// drain collects output that arrived between the last read and the exit. It
// stops at end of stream, when the pipe stays quiet for a drain timeout, or
// after one idle interval if something (a lingering grandchild) keeps writing.
func (r *Runner) drain(src PollableReader, dst *logWriter) error {
	deadline := time.Now().Add(r.idleSleep)
	for time.Now().Before(deadline) {
		ready, err := src.WaitReadable(r.drainTimeout)
		if err != nil {
			return fmt.Errorf("poll child output: %w", err)
		}
		if !ready {
			return nil
		}
		eof, err := pump(src, dst)
		if err != nil || eof {
			return err
		}
	}
	return nil
}

func pump(src PollableReader, dst *logWriter) (eof bool, err error) {
	data, err := src.ReadAvailable()
	if len(data) > 0 {
		dst.write(data)
	}
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read child output: %w", err)
	}
	return false, nil
}

// logWriter decodes child output incrementally (a UTF-8 sequence split
// across two reads is reassembled) and forwards it to the sink and the
// optional capture buffer.
type logWriter struct {
	target  *fanout
	decoder *transform.Writer
}

func newLogWriter(sink io.Writer, capture bool) *logWriter {
	target := &fanout{sink: sink}
	if capture {
		target.capture = &strings.Builder{}
	}
	return &logWriter{
		target:  target,
		decoder: transform.NewWriter(target, unicode.UTF8.NewDecoder()),
	}
}

func (w *logWriter) write(p []byte) {
	// fanout never fails, so neither does the decoder.
	_, _ = w.decoder.Write(p)
}

// flush emits any incomplete trailing sequence as U+FFFD.
func (w *logWriter) flush() {
	_ = w.decoder.Close()
	w.decoder = transform.NewWriter(w.target, unicode.UTF8.NewDecoder())
}

// note appends an annotation on its own line. Notes go to the sink only,
// never into the captured child output.
func (w *logWriter) note(text string) {
	f := w.target
	if f.written && f.last != '\n' {
		text = "\n" + text
	}
	if f.sinkErr != nil {
		return
	}
	if _, err := io.WriteString(f.sink, text+"\n"); err != nil {
		f.sinkErr = err
	}
}

func (w *logWriter) captured() string {
	if w.target.capture == nil {
		return ""
	}
	return w.target.capture.String()
}

func (w *logWriter) err() error { return w.target.sinkErr }

// fanout writes to the sink until it fails once, then only to the capture.
type fanout struct {
	sink    io.Writer
	sinkErr error
	capture *strings.Builder
	written bool
	last    byte
}

func (f *fanout) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if f.sinkErr == nil {
		if _, err := f.sink.Write(p); err != nil {
			f.sinkErr = err
		}
	}
	if f.capture != nil {
		f.capture.Write(p)
	}
	f.written = true
	f.last = p[len(p)-1]
	return len(p), nil
}
