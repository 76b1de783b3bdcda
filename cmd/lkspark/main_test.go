package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lkspark/internal/config"
	"lkspark/internal/testsupport"
)

type cliTestEnv struct {
	worker *testsupport.Worker
	cfg    *config.Config
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	env := newCLITestEnv(t, opts...)
	env.cfg = env.worker.MustLoad(t)
	return env
}

// newCLITestEnv writes the worker files without loading them, for documents
// the CLI is expected to reject.
func newCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	testsupport.WithStubbedBinaries(t, "dput", "gpg")
	return &cliTestEnv{worker: testsupport.NewWorker(t, opts...)}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand(env.worker.Options()...)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.worker.ConfigPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireExitStatus(t *testing.T, err error, want int) {
	t.Helper()
	var exitErr *exitStatusError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit status error, got %v", err)
	}
	if exitErr.status != want {
		t.Fatalf("exit status = %d, want %d", exitErr.status, want)
	}
}

func TestConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{testsupport.MachineName, env.cfg.ClientUUID(), env.cfg.JobLogDir(), "test-incoming"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfigValidateReportsBadDocument(t *testing.T) {
	env := newCLITestEnv(t, testsupport.WithEntry("MaxJobs", 0))

	out, _, err := env.run(t, "config", "validate")
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error, got %v", err)
	}
	if cfgErr.Key != "MaxJobs" {
		t.Fatalf("error should name MaxJobs: %v", err)
	}
	if strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected success output %q", out)
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "etc", "spark.json")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	again := newRootCommand()
	again.SetOut(&out)
	again.SetErr(&out)
	again.SetArgs([]string{"config", "init", "--path", target})
	if err := again.Execute(); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
}

func TestCheckPasses(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "All 6 checks passed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCheckFailsWithoutCertificate(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.Remove(env.cfg.ClientCertPath()); err != nil {
		t.Fatalf("remove client cert: %v", err)
	}

	out, _, err := env.run(t, "check")
	if err == nil || !strings.Contains(err.Error(), "1 of 6 checks failed") {
		t.Fatalf("expected one failed check, got %v", err)
	}
	if !strings.Contains(out, "[FAIL]") {
		t.Fatalf("expected failure line:\n%s", out)
	}
}

func TestRunPrintsOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	script := testsupport.WriteScript(t, t.TempDir(), "tool", `echo "args: $*"; echo note >&2`)

	out, errOut, err := env.run(t, "run", "--", script, "a", "b c")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "args: a b c\n" {
		t.Fatalf("stdout = %q", out)
	}
	if !strings.Contains(errOut, "note") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestRunExitStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	script := testsupport.WriteScript(t, t.TempDir(), "three", `exit 3`)

	_, _, err := env.run(t, "run", "--", script)
	requireExitStatus(t, err, 3)

	if _, _, err := env.run(t, "run", "--expect", "0", "--expect", "3", "--", script); err != nil {
		t.Fatalf("expected status 3 to be accepted: %v", err)
	}
}

func TestRunDoesNotNeedWorkerConfig(t *testing.T) {
	env := newCLITestEnv(t, testsupport.WithEntry("MaxJobs", 0))
	script := testsupport.WriteScript(t, t.TempDir(), "tool", `echo ok`)

	out, _, err := env.run(t, "run", "--", script)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "ok\n" {
		t.Fatalf("stdout = %q", out)
	}
	if _, err := os.Stat(filepath.Join(env.worker.WorkspaceRoot, "workspaces")); !os.IsNotExist(err) {
		t.Fatalf("run should not create worker directories, stat err = %v", err)
	}
}

func TestRunLineAndStdin(t *testing.T) {
	env := setupCLITestEnv(t)
	script := testsupport.WriteScript(t, t.TempDir(), "cat", `cat`)
	input := filepath.Join(t.TempDir(), "input.txt")
	testsupport.WriteText(t, input, "from file\n")

	out, _, err := env.run(t, "run", "--stdin", input, "--line", script)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "from file\n" {
		t.Fatalf("stdout = %q", out)
	}
}

func TestRunMissingTool(t *testing.T) {
	env := setupCLITestEnv(t)

	_, errOut, err := env.run(t, "run", "--", filepath.Join(t.TempDir(), "nope"))
	requireExitStatus(t, err, -1)
	if !strings.Contains(errOut, "could not be started") {
		t.Fatalf("stderr = %q", errOut)
	}
	if code := (&exitStatusError{status: -1}).code(); code != 127 {
		t.Fatalf("spawn failure exit code = %d, want 127", code)
	}
}

func TestExecWritesJobLogAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	script := testsupport.WriteScript(t, t.TempDir(), "build", `echo building; echo warning >&2`)

	_, errOut, err := env.run(t, "exec", "--job", "job-42", "--", script)
	if err != nil {
		t.Fatalf("exec: %v\n%s", err, errOut)
	}
	logPath := filepath.Join(env.cfg.JobLogDir(), "job-42.log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read job log: %v", err)
	}
	if string(data) != "building\nwarning\n" {
		t.Fatalf("job log = %q", data)
	}
	if !strings.Contains(errOut, "job job-42: exit status 0") {
		t.Fatalf("stderr = %q", errOut)
	}

	out, _, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "job-42") {
		t.Fatalf("history missing job:\n%s", out)
	}

	shown, _, err := env.run(t, "logs", "show", "job-42")
	if err != nil {
		t.Fatalf("logs show: %v", err)
	}
	if shown != string(data) {
		t.Fatalf("logs show = %q", shown)
	}
}

func TestExecFailureIsLogged(t *testing.T) {
	env := setupCLITestEnv(t)
	script := testsupport.WriteScript(t, t.TempDir(), "broken", `echo half; exit 5`)

	out, _, err := env.run(t, "exec", "--job", "job-5", "--capture", "--", script)
	requireExitStatus(t, err, 5)
	if out != "half\n" {
		t.Fatalf("captured output = %q", out)
	}
	data, readErr := os.ReadFile(filepath.Join(env.cfg.JobLogDir(), "job-5.log"))
	if readErr != nil {
		t.Fatalf("read job log: %v", readErr)
	}
	if !strings.Contains(string(data), "failed with error code 5") {
		t.Fatalf("job log = %q", data)
	}

	hist, _, err := env.run(t, "history", "--job", "job-5")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(hist, "5") || !strings.Contains(hist, "job-5") {
		t.Fatalf("history:\n%s", hist)
	}
}

func TestExecRefusesUnreadyHost(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.Remove(env.cfg.ServerCertPath()); err != nil {
		t.Fatalf("remove server key: %v", err)
	}
	script := testsupport.WriteScript(t, t.TempDir(), "tool", `exit 0`)

	_, _, err := env.run(t, "exec", "--job", "job-x", "--", script)
	if err == nil || !strings.Contains(err.Error(), "host not ready") {
		t.Fatalf("expected readiness failure, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(env.cfg.JobLogDir(), "job-x.log")); !os.IsNotExist(statErr) {
		t.Fatalf("job log should not exist, stat err = %v", statErr)
	}

	if _, _, err := env.run(t, "exec", "--skip-checks", "--job", "job-x", "--", script); err != nil {
		t.Fatalf("exec --skip-checks: %v", err)
	}
}

func TestLogsPrune(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithEntry("LogRetentionDays", 7))
	if err := env.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	stale := filepath.Join(env.cfg.JobLogDir(), "old-job.log")
	testsupport.WriteText(t, stale, "old output\n")
	old := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, _, err := env.run(t, "logs", "prune")
	if err != nil {
		t.Fatalf("logs prune: %v", err)
	}
	if !strings.Contains(out, "Removed 1 job log(s)") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale log removed, stat err = %v", err)
	}
}
