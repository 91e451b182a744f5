// Package logging assembles structured slog loggers and formatting helpers used
// across driveingest.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so phase code can automatically
// tag log lines with run identifiers, phase names, and item keys. Console
// output is coloured only when it lands on a terminal; the per-run log file
// always receives plain text. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape and routing guarantees as the rest of the
// system.
package logging
