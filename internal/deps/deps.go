package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external tool a spark worker drives.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
}

// Satisfied reports whether the requirement does not block work: it is either
// available or optional.
func (s Status) Satisfied() bool {
	return s.Available || s.Optional
}

// WorkerRequirements lists the tools every spark worker needs to upload and
// sign build results.
func WorkerRequirements() []Requirement {
	return []Requirement{
		{Name: "dput", Command: "dput", Description: "Required to upload build results"},
		{Name: "GnuPG", Command: "gpg", Description: "Required to sign uploads"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Available = true
	status.Path = path
	return status
}

// Missing returns the statuses that block work.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Satisfied() {
			missing = append(missing, s)
		}
	}
	return missing
}
