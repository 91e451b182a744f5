// Package pipeline sequences the download, process, and ingest phases.
//
// The Orchestrator owns phase ordering, per-item accounting, the failure
// policy, and the run state machine. The phases themselves are supplied as
// adapters (Downloader, Processor, Ingestor) so the Drive client, the
// transcription engines, and the database stay outside this package.
//
// Adapters report per-item outcomes as Item values and reserve the error
// return for total failures. A total failure stops the run; per-item failures
// only count against the FailurePolicy.
//
// Watch repeats Run on a fixed start-to-start interval until its context is
// cancelled. Time is read through a Clock so tests can drive the loop
// without sleeping.
package pipeline
