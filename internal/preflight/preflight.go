package preflight

import (
	"context"

	"driveingest/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Pinger is satisfied by the ingest store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunAll executes every applicable preflight check for the given config.
// A nil pinger skips the store connectivity check.
func RunAll(ctx context.Context, cfg *config.Config, store Pinger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, Result{Name: status.Name, Passed: status.Usable(), Detail: status.Summary()})
	}

	results = append(results,
		CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir),
		CheckDirectoryAccess("Processed directory", cfg.Paths.ProcessedDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDiskSpace("Free space", cfg.Paths.DownloadDir, MinFreeBytes),
		CheckDriveCredentials(cfg.Drive),
	)
	if cfg.Transcription.Engine == config.EngineOpenAI {
		results = append(results, CheckTranscriptionKey(cfg.Transcription))
	}
	if store != nil {
		results = append(results, CheckStore(ctx, store))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
