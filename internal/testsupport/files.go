package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteScript creates an executable /bin/sh script named name inside dir and
// returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return target
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends their directory to PATH for the duration of the test.
func WithStubbedBinaries(t *testing.T, names ...string) string {
	t.Helper()

	binDir := filepath.Join(t.TempDir(), "bin")
	for _, name := range names {
		WriteScript(t, binDir, name, "exit 0")
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return binDir
}
