package command_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lkspark/internal/command"
	"lkspark/internal/testsupport"
)

func fastRunner(opts ...command.Option) *command.Runner {
	base := []command.Option{
		command.WithPollTimeout(time.Millisecond),
		command.WithIdleSleep(20 * time.Millisecond),
	}
	return command.New(append(base, opts...)...)
}

func TestRunLoggedAppendsOutput(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "hello", `echo hello`)
	var sink bytes.Buffer

	res, err := fastRunner().RunLogged(context.Background(), &sink, []string{script}, command.LoggedOptions{})
	if err != nil {
		t.Fatalf("RunLogged: %v", err)
	}
	if res.ExitStatus != 0 {
		t.Fatalf("exit status = %d", res.ExitStatus)
	}
	if sink.String() != "hello\n" {
		t.Fatalf("sink = %q", sink.String())
	}
	if res.Output != "" {
		t.Fatalf("expected no captured output without CaptureOutput, got %q", res.Output)
	}
}

func TestRunLoggedMergesStreamsInOrder(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "mixed", `echo one; echo two >&2; echo three`)
	var sink bytes.Buffer

	if _, err := fastRunner().RunLogged(context.Background(), &sink, []string{script}, command.LoggedOptions{}); err != nil {
		t.Fatalf("RunLogged: %v", err)
	}
	if sink.String() != "one\ntwo\nthree\n" {
		t.Fatalf("sink = %q", sink.String())
	}
}

func TestRunLoggedRecordsFailure(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "fail", `printf 'partial'; exit 2`)
	var sink bytes.Buffer

	res, err := fastRunner().RunLogged(context.Background(), &sink, []string{script}, command.LoggedOptions{CaptureOutput: true})
	if err != nil {
		t.Fatalf("nonzero exit should not be an error, got %v", err)
	}
	if res.ExitStatus != 2 {
		t.Fatalf("exit status = %d, want 2", res.ExitStatus)
	}
	lines := strings.Split(strings.TrimRight(sink.String(), "\n"), "\n")
	if len(lines) != 2 || lines[0] != "partial" {
		t.Fatalf("sink = %q", sink.String())
	}
	if !strings.HasPrefix(lines[1], "Command [") || !strings.HasSuffix(lines[1], "failed with error code 2") {
		t.Fatalf("unexpected failure line %q", lines[1])
	}
	if res.Output != "partial" {
		t.Fatalf("captured output should hold only child output, got %q", res.Output)
	}
}

func TestRunLoggedCapturesOutput(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "build", `echo building; echo warning >&2`)
	var sink bytes.Buffer

	res, err := fastRunner().RunLogged(context.Background(), &sink, []string{script}, command.LoggedOptions{CaptureOutput: true})
	if err != nil {
		t.Fatalf("RunLogged: %v", err)
	}
	if res.Output != "building\nwarning\n" {
		t.Fatalf("output = %q", res.Output)
	}
	if res.Output != sink.String() {
		t.Fatalf("capture %q differs from sink %q", res.Output, sink.String())
	}
}

func TestRunLoggedSpawnFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing-tool")
	var sink bytes.Buffer

	res, err := fastRunner().RunLogged(context.Background(), &sink, []string{missing, "arg"}, command.LoggedOptions{})
	var spawnErr *command.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected *SpawnError, got %v", err)
	}
	if res.ExitStatus != command.SpawnFailed {
		t.Fatalf("exit status = %d", res.ExitStatus)
	}
	if !strings.Contains(sink.String(), "could not be started") {
		t.Fatalf("sink = %q", sink.String())
	}
}

func TestRunLoggedRequiresSink(t *testing.T) {
	if _, err := fastRunner().RunLogged(context.Background(), nil, []string{"true"}, command.LoggedOptions{}); err == nil {
		t.Fatal("expected error for nil sink")
	}
}

func TestRunLoggedEnvironment(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "env", `echo "$PYTHONUNBUFFERED $LKSPARK_A $LKSPARK_B"`)
	var sink bytes.Buffer

	runner := fastRunner(command.WithEnv("LKSPARK_A=runner"))
	_, err := runner.RunLogged(context.Background(), &sink, []string{script}, command.LoggedOptions{Env: []string{"LKSPARK_B=call"}})
	if err != nil {
		t.Fatalf("RunLogged: %v", err)
	}
	if sink.String() != "true runner call\n" {
		t.Fatalf("sink = %q", sink.String())
	}
}

func TestRunLoggedWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	script := testsupport.WriteScript(t, t.TempDir(), "pwd", `pwd -P`)
	var sink bytes.Buffer

	if _, err := fastRunner().RunLogged(context.Background(), &sink, []string{script}, command.LoggedOptions{Dir: dir}); err != nil {
		t.Fatalf("RunLogged: %v", err)
	}
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	if strings.TrimSpace(sink.String()) != want {
		t.Fatalf("pwd = %q, want %q", sink.String(), want)
	}
}

func TestRunLoggedOutputAcrossIdlePeriods(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "slow", `echo first; sleep 0.1; echo second; sleep 0.1; printf last`)
	var sink bytes.Buffer

	res, err := fastRunner().RunLogged(context.Background(), &sink, []string{script}, command.LoggedOptions{})
	if err != nil {
		t.Fatalf("RunLogged: %v", err)
	}
	if res.ExitStatus != 0 {
		t.Fatalf("exit status = %d", res.ExitStatus)
	}
	if sink.String() != "first\nsecond\nlast" {
		t.Fatalf("sink = %q", sink.String())
	}
}

func TestRunLoggedLargeOutput(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "flood", `i=0; while [ $i -lt 5000 ]; do echo "line $i of the build output"; i=$((i+1)); done`)
	var sink bytes.Buffer

	if _, err := fastRunner().RunLogged(context.Background(), &sink, []string{script}, command.LoggedOptions{}); err != nil {
		t.Fatalf("RunLogged: %v", err)
	}
	lines := strings.Split(strings.TrimRight(sink.String(), "\n"), "\n")
	if len(lines) != 5000 {
		t.Fatalf("got %d lines, want 5000", len(lines))
	}
	if lines[4999] != "line 4999 of the build output" {
		t.Fatalf("last line = %q", lines[4999])
	}
}

func TestRunLoggedReplacesInvalidUTF8(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "bad", `printf 'ok \377\n'`)
	var sink bytes.Buffer

	if _, err := fastRunner().RunLogged(context.Background(), &sink, []string{script}, command.LoggedOptions{}); err != nil {
		t.Fatalf("RunLogged: %v", err)
	}
	if sink.String() != "ok �\n" {
		t.Fatalf("sink = %q", sink.String())
	}
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("disk full")
}

func TestRunLoggedSinkFailure(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "talk", `echo a; echo b; exit 0`)
	sink := &failingWriter{}

	res, err := fastRunner().RunLogged(context.Background(), sink, []string{script}, command.LoggedOptions{CaptureOutput: true})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected sink error, got %v", err)
	}
	if res.ExitStatus != 0 {
		t.Fatalf("exit status = %d", res.ExitStatus)
	}
	if res.Output != "a\nb\n" {
		t.Fatalf("capture should continue after sink failure, got %q", res.Output)
	}
	if sink.calls != 1 {
		t.Fatalf("sink written %d times after failing, want 1", sink.calls)
	}
}

func TestRunLoggedCancel(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "hang", `echo started; exec sleep 30`)
	var sink bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := fastRunner().RunLogged(ctx, &sink, []string{script}, command.LoggedOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("cancellation took %v", elapsed)
	}
	if !strings.HasPrefix(sink.String(), "started\n") {
		t.Fatalf("sink = %q", sink.String())
	}
}
