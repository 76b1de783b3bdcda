package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"lkspark/internal/logging"
)

// SpawnFailed is the exit status reported when no process could be created.
const SpawnFailed = -1

const (
	defaultPollTimeout  = 2 * time.Millisecond
	defaultIdleSleep    = 4 * time.Second
	defaultDrainTimeout = time.Millisecond

	// unbufferedEnv makes Python-based tools flush output as they write it.
	unbufferedEnv = "PYTHONUNBUFFERED=true"
)

// Option configures the runner.
type Option func(*Runner)

// WithLogger routes runner diagnostics (not child output) to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "command")
		}
	}
}

// WithPollTimeout sets how long RunLogged waits for output to become readable.
func WithPollTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.pollTimeout = d
		}
	}
}

// WithIdleSleep sets how long RunLogged sleeps after a poll found no output.
func WithIdleSleep(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.idleSleep = d
		}
	}
}

// WithDrainTimeout sets the poll timeout used for the final drain after exit.
func WithDrainTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.drainTimeout = d
		}
	}
}

// WithEnv adds KEY=VALUE overrides to the environment of RunLogged children.
func WithEnv(env ...string) Option {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

// Runner executes external commands. A Runner holds no per-call state; each
// call blocks until its child exits.
type Runner struct {
	logger       *slog.Logger
	pollTimeout  time.Duration
	idleSleep    time.Duration
	drainTimeout time.Duration
	env          []string
}

// New constructs a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger:       logging.NewNop(),
		pollTimeout:  defaultPollTimeout,
		idleSleep:    defaultIdleSleep,
		drainTimeout: defaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Split tokenizes a command line using shell word-splitting rules. Quotes and
// escapes are honoured; no other shell syntax is interpreted.
func Split(line string) ([]string, error) {
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("split command line: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("split command line: empty command")
	}
	return argv, nil
}

// SpawnError reports that a child process could not be created at all.
type SpawnError struct {
	Command []string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", FormatCommand(e.Command), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// FormatCommand renders argv for logs, quoting words that would otherwise be ambiguous.
func FormatCommand(argv []string) string {
	words := make([]string, len(argv))
	for i, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\") {
			words[i] = strconv.Quote(arg)
		} else {
			words[i] = arg
		}
	}
	return "[" + strings.Join(words, " ") + "]"
}

// command builds the child. Cancelling ctx kills it; callers that need a
// deadline set one on ctx.
func (r *Runner) command(ctx context.Context, argv []string) (*exec.Cmd, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("command is required")
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...), nil //nolint:gosec
}

// exitStatus converts a finished process state into a status. Death by
// signal is reported the way shells do, as 128+signal.
func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return SpawnFailed
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

// decode converts child output to text, replacing invalid UTF-8 with U+FFFD.
func decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}

func (r *Runner) childEnv(extra []string) []string {
	env := os.Environ()
	env = append(env, r.env...)
	env = append(env, extra...)
	return append(env, unbufferedEnv)
}
