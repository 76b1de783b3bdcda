package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ClientUUID derives the client identity for machineName. The same name always
// yields the same UUID (version 5, SHA-1 over a fixed namespace).
func ClientUUID(machineName string) string {
	return uuid.NewSHA1(uuid.MustParse(clientNamespace), []byte(machineName)).String()
}

func (c *Config) resolveIdentity(l *loader, doc *document) error {
	c.machineName = strings.TrimSpace(doc.MachineName)
	if c.machineName == "" {
		name, err := readIdentityFile(l.hostnameFile, "MachineName")
		if err != nil {
			return err
		}
		c.machineName = name
	}

	id, err := readIdentityFile(l.machineIDFile, "")
	if err != nil {
		return err
	}
	c.machineID = id
	c.clientUUID = ClientUUID(c.machineName)
	return nil
}

// readIdentityFile returns the first line of a single-line system file such as
// /etc/hostname. An unreadable or blank file is fatal.
func readIdentityFile(path, key string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ConfigError{Key: key, Msg: fmt.Sprintf("read identity file %s", path), Err: err}
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(data)), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", &ConfigError{Key: key, Msg: fmt.Sprintf("identity file %s is empty", path)}
	}
	return line, nil
}

func (c *Config) derive(l *loader, doc *document) error {
	c.lighthouseServer = strings.TrimSpace(doc.LighthouseServer)
	maxJobs, err := doc.maxJobs()
	if err != nil {
		return err
	}
	c.maxJobs = maxJobs

	certsBase := filepath.Clean(l.certsBaseDir)
	c.clientCertPath = filepath.Join(certsBase, "secret", c.machineName+"-spark_private.sec")
	c.serverCertPath = filepath.Join(certsBase, c.machineName+"_lighthouse-server.pub")

	root := strings.TrimSpace(doc.WorkspaceRoot)
	if root == "" {
		root = defaultWorkspaceRoot
	}
	root, err = expandPath(root)
	if err != nil {
		return &ConfigError{Key: "WorkspaceRoot", Msg: "resolve path", Err: err}
	}
	c.workspaceRoot = root
	c.workspaceDir = filepath.Join(root, workspacesSubdir)
	c.jobLogDir = filepath.Join(root, jobLogSubdir)
	c.historyPath = filepath.Join(root, historyFileName)

	c.architectures = nonEmpty(doc.Architectures)
	if len(c.architectures) == 0 {
		raw := l.platform()
		name, guessed := DetectArchitecture(raw)
		if guessed {
			// The logging package imports config; these keys match its field names.
			l.logger.Warn("using auto-detected architecture name",
				"architecture", name,
				"event_type", "architecture_guessed",
				"error_hint", "set Architectures in the worker configuration",
			)
		}
		c.architectures = []string{name}
		c.archGuessed = guessed
	}

	c.acceptedJobKinds = nonEmpty(doc.AcceptedJobs)
	c.dputHost = strings.TrimSpace(doc.DputHost)
	c.gpgKeyID = strings.TrimSpace(doc.GpgKeyID)

	c.logging = Logging{
		Level:         strings.TrimSpace(doc.LogLevel),
		Format:        strings.ToLower(strings.TrimSpace(doc.LogFormat)),
		RetentionDays: doc.LogRetentionDays,
	}
	if c.logging.Level == "" {
		c.logging.Level = defaultLogLevel
	}
	if c.logging.Format == "" {
		c.logging.Format = defaultLogFormat
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
