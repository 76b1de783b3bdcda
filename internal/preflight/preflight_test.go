package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lkspark/internal/deps"
	"lkspark/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckReadableFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "worker.pub")
	if err := os.WriteFile(file, []byte("key"), 0o644); err != nil {
		t.Fatal(err)
	}

	if result := CheckReadableFile("key", file); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result := CheckReadableFile("key", filepath.Join(dir, "missing.pub")); result.Passed {
		t.Fatal("expected failure for missing file")
	}
	if result := CheckReadableFile("key", dir); result.Passed {
		t.Fatal("expected failure for directory")
	}
}

func TestFromStatus(t *testing.T) {
	ok := fromStatus(deps.Status{Name: "GnuPG", Command: "gpg", Available: true, Path: "/usr/bin/gpg"})
	if !ok.Passed || ok.Name != "GnuPG (gpg)" || ok.Detail != "/usr/bin/gpg" {
		t.Fatalf("unexpected result %#v", ok)
	}

	missing := fromStatus(deps.Status{Name: "dput", Command: "dput", Detail: `binary "dput" not found`, Description: "Required to upload build results"})
	if missing.Passed || missing.Name != "dput" || !strings.Contains(missing.Detail, "Required to upload") {
		t.Fatalf("unexpected result %#v", missing)
	}

	optional := fromStatus(deps.Status{Name: "extra", Optional: true, Detail: "binary not found"})
	if !optional.Passed || !strings.HasSuffix(optional.Detail, "(optional)") {
		t.Fatalf("unexpected result %#v", optional)
	}
}

func TestRunAll(t *testing.T) {
	testsupport.WithStubbedBinaries(t, "dput", "gpg")
	worker := testsupport.NewWorker(t)
	cfg := worker.MustLoad(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(cfg)
	if len(results) != 6 {
		t.Fatalf("expected 6 checks, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, failed: %#v", failed)
	}
}

func TestRunAllReportsMissingCertificate(t *testing.T) {
	testsupport.WithStubbedBinaries(t, "dput", "gpg")
	worker := testsupport.NewWorker(t)
	cfg := worker.MustLoad(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := os.Remove(cfg.ServerCertPath()); err != nil {
		t.Fatalf("remove server key: %v", err)
	}

	failed := Failed(RunAll(cfg))
	if len(failed) != 1 || failed[0].Name != "Lighthouse server key" {
		t.Fatalf("expected only the server key to fail, got %#v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatalf("expected nil results, got %#v", results)
	}
}
