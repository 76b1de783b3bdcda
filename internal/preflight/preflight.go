package preflight

import (
	"lkspark/internal/config"
	"lkspark/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Workspace directory", cfg.WorkspaceDir()),
		CheckDirectoryAccess("Job log directory", cfg.JobLogDir()),
		CheckReadableFile("Client certificate", cfg.ClientCertPath()),
		CheckReadableFile("Lighthouse server key", cfg.ServerCertPath()),
	}
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromStatus(status))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func fromStatus(status deps.Status) Result {
	name := status.Name
	if status.Command != "" && status.Command != status.Name {
		name += " (" + status.Command + ")"
	}
	switch {
	case status.Available:
		return Result{Name: name, Passed: true, Detail: status.Path}
	case status.Optional:
		return Result{Name: name, Passed: true, Detail: status.Detail + " (optional)"}
	default:
		detail := status.Detail
		if status.Description != "" {
			detail += "; " + status.Description
		}
		return Result{Name: name, Detail: detail}
	}
}
