package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.json
var sampleConfig string

// document mirrors the on-disk configuration. MaxJobs stays untyped so a
// quoted number ("2") is accepted alongside a plain one.
type document struct {
	MachineName      string   `json:"MachineName" toml:"MachineName"`
	LighthouseServer string   `json:"LighthouseServer" toml:"LighthouseServer"`
	MaxJobs          any      `json:"MaxJobs" toml:"MaxJobs"`
	WorkspaceRoot    string   `json:"WorkspaceRoot" toml:"WorkspaceRoot"`
	Architectures    []string `json:"Architectures" toml:"Architectures"`
	AcceptedJobs     []string `json:"AcceptedJobs" toml:"AcceptedJobs"`
	DputHost         string   `json:"DputHost" toml:"DputHost"`
	GpgKeyID         string   `json:"GpgKeyID" toml:"GpgKeyID"`
	LogLevel         string   `json:"LogLevel" toml:"LogLevel"`
	LogFormat        string   `json:"LogFormat" toml:"LogFormat"`
	LogRetentionDays int      `json:"LogRetentionDays" toml:"LogRetentionDays"`
}

// Logging holds the worker's own log settings.
type Logging struct {
	Level         string
	Format        string
	RetentionDays int
}

// Config is the loaded worker configuration. It has no mutators.
type Config struct {
	path string

	machineName      string
	machineID        string
	clientUUID       string
	lighthouseServer string
	maxJobs          int

	clientCertPath string
	serverCertPath string

	workspaceRoot string
	workspaceDir  string
	jobLogDir     string
	historyPath   string

	architectures    []string
	archGuessed      bool
	acceptedJobKinds []string

	dputHost string
	gpgKeyID string

	logging Logging
}

// Option adjusts where Load looks for host-level inputs.
type Option func(*loader)

type loader struct {
	certsBaseDir  string
	hostnameFile  string
	machineIDFile string
	platform      func() string
	logger        *slog.Logger
}

// WithCertsBaseDir overrides the directory certificate paths are computed under.
func WithCertsBaseDir(dir string) Option {
	return func(l *loader) {
		if strings.TrimSpace(dir) != "" {
			l.certsBaseDir = dir
		}
	}
}

// WithHostnameFile overrides the file the machine name falls back to.
func WithHostnameFile(path string) Option {
	return func(l *loader) {
		if strings.TrimSpace(path) != "" {
			l.hostnameFile = path
		}
	}
}

// WithMachineIDFile overrides the machine-id file location.
func WithMachineIDFile(path string) Option {
	return func(l *loader) {
		if strings.TrimSpace(path) != "" {
			l.machineIDFile = path
		}
	}
}

// WithPlatform injects the raw machine string used for architecture detection.
func WithPlatform(platform func() string) Option {
	return func(l *loader) {
		if platform != nil {
			l.platform = platform
		}
	}
}

// WithLogger routes load-time warnings (such as a guessed architecture).
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// DefaultConfigPath returns the configuration location used when Load is given
// no path: $LKSPARK_CONFIG if set, otherwise /etc/laniakea/spark.json.
func DefaultConfigPath() string {
	if value, ok := os.LookupEnv(configPathEnv); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultConfigPath
}

// Load reads, validates, and derives the worker configuration. Every failure is
// reported as a *ConfigError.
func Load(path string, opts ...Option) (*Config, error) {
	l := &loader{
		certsBaseDir:  defaultCertsBaseDir,
		hostnameFile:  defaultHostnameFile,
		machineIDFile: defaultMachineIDFile,
		platform:      hostMachine,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}

	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath()
	}

	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}

	cfg := &Config{path: path}
	if err := cfg.resolveIdentity(l, doc); err != nil {
		return nil, err
	}
	if err := cfg.derive(l, doc); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("read %s", path), Err: err}
	}

	var doc document
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &doc)
	} else {
		err = json.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	}
	if err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("parse %s", path), Err: err}
	}
	return &doc, nil
}

// EnsureDirectories creates the workspace and job log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.workspaceDir, c.jobLogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes a sample configuration document to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Path is the document the configuration was loaded from.
func (c *Config) Path() string { return c.path }

func (c *Config) MachineName() string { return c.machineName }

func (c *Config) MachineID() string { return c.machineID }

// ClientUUID is the worker's durable identity towards the lighthouse server.
func (c *Config) ClientUUID() string { return c.clientUUID }

func (c *Config) LighthouseServer() string { return c.lighthouseServer }

// MaxJobs is the concurrency ceiling for the owning daemon; it is not enforced here.
func (c *Config) MaxJobs() int { return c.maxJobs }

func (c *Config) ClientCertPath() string { return c.clientCertPath }

func (c *Config) ServerCertPath() string { return c.serverCertPath }

func (c *Config) WorkspaceRoot() string { return c.workspaceRoot }

func (c *Config) WorkspaceDir() string { return c.workspaceDir }

func (c *Config) JobLogDir() string { return c.jobLogDir }

// HistoryPath is the SQLite ledger of commands run by this worker.
func (c *Config) HistoryPath() string { return c.historyPath }

// SupportedArchitectures returns a copy of the configured or detected architectures.
func (c *Config) SupportedArchitectures() []string {
	return append([]string(nil), c.architectures...)
}

// ArchitecturesGuessed reports whether SupportedArchitectures holds an unmapped
// raw platform name.
func (c *Config) ArchitecturesGuessed() bool { return c.archGuessed }

// AcceptedJobKinds returns a copy of the job kinds this worker takes.
func (c *Config) AcceptedJobKinds() []string {
	return append([]string(nil), c.acceptedJobKinds...)
}

func (c *Config) DputHost() string { return c.dputHost }

func (c *Config) GpgKeyID() string { return c.gpgKeyID }

func (c *Config) Logging() Logging { return c.logging }
