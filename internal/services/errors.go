package services

import (
	"errors"
	"fmt"
	"strings"
)

// Markers classify failures. Wrap attaches one to every error an adapter or
// the CLI returns so callers can branch with errors.Is.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	// ErrAdapter marks a total adapter failure: the phase could not run at all.
	ErrAdapter = errors.New("adapter failure")
)

var kinds = []struct {
	marker error
	name   string
}{
	{ErrConfiguration, "configuration"},
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrTimeout, "timeout"},
	{ErrExternalTool, "external_tool"},
	{ErrAdapter, "adapter"},
	{ErrTransient, "transient"},
}

// Wrap tags err with marker and prefixes it with "phase: operation: message",
// omitting blank parts. A nil marker means ErrTransient.
func Wrap(marker error, phase, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinNonBlank(phase, operation, message)
	if detail == "" {
		detail = "service failure"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// Kind names the first marker err carries, for log fields. Unmarked errors
// are "unknown".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.name
		}
	}
	return "unknown"
}

// IsTotalFailure reports whether err means an adapter could not serve its
// phase for runtime reasons. Configuration errors are excluded: rerunning
// does not help until the config changes.
func IsTotalFailure(err error) bool {
	return err != nil && !errors.Is(err, ErrConfiguration)
}

// ExitCode maps an error returned by the CLI onto a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return 2
	default:
		return 1
	}
}

func joinNonBlank(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ": ")
}
