// Package preflight provides readiness checks for the binaries, paths,
// credentials and store that the pipeline depends on.
//
// The CLI "driveingest check" command renders RunAll's results. Checks are
// gated by configuration, so a WhisperX-only install is not asked for an
// OpenAI key and an OpenAI install is not asked for uvx.
package preflight
