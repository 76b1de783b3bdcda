package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lkspark/internal/config"
)

const (
	// MachineName is the hostname written into generated identity files.
	MachineName = "test-worker"
	// MachineID is the machine-id written into generated identity files.
	MachineID = "0123456789abcdef0123456789abcdef"
)

// ConfigOption allows callers to customize the generated worker document.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	format string
	doc    map[string]any
}

// Worker is a throwaway host layout: a config document, identity files,
// placeholder certificates for MachineName, and a workspace root, all under
// one temp directory.
type Worker struct {
	Dir           string
	ConfigPath    string
	HostnameFile  string
	MachineIDFile string
	CertsDir      string
	WorkspaceRoot string
}

// WithEntry sets (or replaces) a top-level document entry.
func WithEntry(key string, value any) ConfigOption {
	return func(b *configBuilder) {
		b.doc[key] = value
	}
}

// WithoutEntry removes a top-level document entry.
func WithoutEntry(key string) ConfigOption {
	return func(b *configBuilder) {
		delete(b.doc, key)
	}
}

// WithTOML writes the document as spark.toml instead of spark.json.
func WithTOML() ConfigOption {
	return func(b *configBuilder) {
		b.format = "toml"
	}
}

// NewWorker writes a complete, valid worker layout and applies opts to the
// document before it is written.
func NewWorker(t testing.TB, opts ...ConfigOption) *Worker {
	t.Helper()

	base := t.TempDir()
	w := &Worker{
		Dir:           base,
		HostnameFile:  filepath.Join(base, "etc", "hostname"),
		MachineIDFile: filepath.Join(base, "etc", "machine-id"),
		CertsDir:      filepath.Join(base, "etc", "keys", "curve"),
		WorkspaceRoot: filepath.Join(base, "var", "lib", "lkspark"),
	}
	WriteText(t, w.HostnameFile, MachineName+"\n")
	WriteText(t, w.MachineIDFile, MachineID+"\n")
	WriteText(t, filepath.Join(w.CertsDir, "secret", MachineName+"-spark_private.sec"), "client secret key\n")
	WriteText(t, filepath.Join(w.CertsDir, MachineName+"_lighthouse-server.pub"), "server public key\n")

	builder := &configBuilder{
		format: "json",
		doc: map[string]any{
			"LighthouseServer": "tcp://lighthouse.test:5570",
			"WorkspaceRoot":    w.WorkspaceRoot,
			"Architectures":    []string{"amd64"},
			"AcceptedJobs":     []string{"package-build"},
			"DputHost":         "test-incoming",
			"GpgKeyID":         "DEADBEEF",
		},
	}
	for _, opt := range opts {
		opt(builder)
	}

	var data []byte
	var err error
	if builder.format == "toml" {
		w.ConfigPath = filepath.Join(base, "etc", "spark.toml")
		data, err = toml.Marshal(builder.doc)
	} else {
		w.ConfigPath = filepath.Join(base, "etc", "spark.json")
		data, err = json.MarshalIndent(builder.doc, "", "  ")
	}
	if err != nil {
		t.Fatalf("encode worker document: %v", err)
	}
	WriteText(t, w.ConfigPath, string(data))
	return w
}

// Options points config.Load at the worker's files.
func (w *Worker) Options(extra ...config.Option) []config.Option {
	opts := []config.Option{
		config.WithCertsBaseDir(w.CertsDir),
		config.WithHostnameFile(w.HostnameFile),
		config.WithMachineIDFile(w.MachineIDFile),
	}
	return append(opts, extra...)
}

// MustLoad loads the worker configuration or fails the test.
func (w *Worker) MustLoad(t testing.TB, extra ...config.Option) *config.Config {
	t.Helper()

	cfg, err := config.Load(w.ConfigPath, w.Options(extra...)...)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
