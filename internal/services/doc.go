// Package services defines shared utilities consumed by the pipeline phases
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, phase names, and item keys
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper. The orchestrator uses the
//     markers to tell a total adapter failure apart from a configuration
//     problem, and the CLI maps them onto exit codes.
//
// Use these helpers when wiring new adapter logic so failure handling and
// observability stay uniform across the pipeline.
package services
