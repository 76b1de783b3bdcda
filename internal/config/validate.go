package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ConfigError reports a configuration document that cannot be used. Key names
// the offending entry when the problem is tied to one.
type ConfigError struct {
	Key string
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config")
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err (or anything it wraps) is a *ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

func (d *document) validate() error {
	if strings.TrimSpace(d.LighthouseServer) == "" {
		return &ConfigError{Key: "LighthouseServer", Msg: "entry is missing; specify the address of a Lighthouse server"}
	}
	maxJobs, err := d.maxJobs()
	if err != nil {
		return err
	}
	if maxJobs < 1 {
		return &ConfigError{Key: "MaxJobs", Msg: fmt.Sprintf("maximum number of jobs can not be < 1 (got %d)", maxJobs)}
	}
	if len(nonEmpty(d.AcceptedJobs)) == 0 {
		return &ConfigError{Key: "AcceptedJobs", Msg: "essential entry is missing; without accepting any job kind running this worker is pointless"}
	}
	if strings.TrimSpace(d.DputHost) == "" {
		return &ConfigError{Key: "DputHost", Msg: "essential entry is missing"}
	}
	if strings.TrimSpace(d.GpgKeyID) == "" {
		return &ConfigError{Key: "GpgKeyID", Msg: "essential entry is missing"}
	}
	if d.LogRetentionDays < 0 {
		return &ConfigError{Key: "LogRetentionDays", Msg: "must be >= 0"}
	}
	switch strings.ToLower(strings.TrimSpace(d.LogFormat)) {
	case "", "console", "json":
	default:
		return &ConfigError{Key: "LogFormat", Msg: fmt.Sprintf("unsupported value %q (use console or json)", d.LogFormat)}
	}
	return nil
}

// maxJobs converts the MaxJobs entry to an int. Fractions are truncated and
// numeric strings are parsed; an absent entry yields the default.
func (d *document) maxJobs() (int, error) {
	switch v := d.MaxJobs.(type) {
	case nil:
		return defaultMaxJobs, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &ConfigError{Key: "MaxJobs", Msg: fmt.Sprintf("not a number: %v", v)}
		}
		return int(v), nil
	case int64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &ConfigError{Key: "MaxJobs", Msg: fmt.Sprintf("not an integer: %q", v), Err: err}
		}
		return n, nil
	default:
		return 0, &ConfigError{Key: "MaxJobs", Msg: fmt.Sprintf("unsupported value %v (%T)", v, v)}
	}
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
