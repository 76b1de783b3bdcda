package deps

import (
	"path/filepath"
	"testing"

	"lkspark/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	present := testsupport.WriteScript(t, t.TempDir(), "present", "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Path != present {
		t.Fatalf("expected resolved path %q, got %q", present, results[0].Path)
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for unset command: %#v", results[2])
	}
}

func TestWorkerRequirementsOnPath(t *testing.T) {
	binDir := testsupport.WithStubbedBinaries(t, "dput", "gpg")

	results := CheckBinaries(WorkerRequirements())
	for _, status := range results {
		if !status.Available {
			t.Fatalf("expected %s to be available, got %q", status.Name, status.Detail)
		}
		if filepath.Dir(status.Path) != binDir {
			t.Fatalf("expected %s from stub dir, got %s", status.Name, status.Path)
		}
	}
	if missing := Missing(results); len(missing) != 0 {
		t.Fatalf("expected nothing missing, got %#v", missing)
	}
}

func TestMissingIgnoresOptional(t *testing.T) {
	statuses := []Status{
		{Name: "required", Available: false},
		{Name: "optional", Available: false, Optional: true},
		{Name: "present", Available: true},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "required" {
		t.Fatalf("unexpected missing set %#v", missing)
	}
}
