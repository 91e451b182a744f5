package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Binary names an external program a phase shells out to.
type Binary struct {
	Name     string
	Command  string
	Purpose  string
	Optional bool
}

// Status is the outcome of locating a Binary on this host.
type Status struct {
	Binary
	Path    string
	Found   bool
	Problem string
}

// Usable reports whether a run can proceed with this binary's status.
func (s Status) Usable() bool {
	return s.Found || s.Optional
}

// Summary is a one-line description suitable for a check table.
func (s Status) Summary() string {
	if s.Found {
		return s.Path
	}
	if s.Optional {
		return s.Problem + " (optional)"
	}
	return s.Problem
}

// Locate resolves b.Command against PATH.
func Locate(b Binary) Status {
	b.Command = strings.TrimSpace(b.Command)
	status := Status{Binary: b, Path: b.Command}
	if b.Command == "" {
		status.Problem = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(b.Command)
	if err != nil {
		status.Problem = fmt.Sprintf("binary %q not found", b.Command)
		return status
	}
	status.Path = resolved
	status.Found = true
	return status
}

// LocateAll resolves each binary in order.
func LocateAll(binaries ...Binary) []Status {
	out := make([]Status, len(binaries))
	for i, b := range binaries {
		out[i] = Locate(b)
	}
	return out
}
