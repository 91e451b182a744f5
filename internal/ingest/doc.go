// Package ingest implements the pipeline's ingest phase, loading processed
// artifacts into the store one transaction at a time. A source that is
// already stored is reported as skipped, so re-running ingest is harmless.
package ingest
