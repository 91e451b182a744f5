package pipeline

import (
	"fmt"
	"time"

	"driveingest/internal/services"
)

// DefaultInterval spaces watch cycles when no interval is given.
const DefaultInterval = 30 * time.Second

// Mode selects which phases a run executes.
type Mode string

const (
	ModeFull         Mode = "full"
	ModeDownloadOnly Mode = "download_only"
	ModeProcessOnly  Mode = "process_only"
	ModeIngestOnly   Mode = "ingest_only"
)

// Selects reports whether the mode runs phase p.
func (m Mode) Selects(p Phase) bool {
	switch m {
	case ModeFull:
		return true
	case ModeDownloadOnly:
		return p == PhaseDownload
	case ModeProcessOnly:
		return p == PhaseProcess
	case ModeIngestOnly:
		return p == PhaseIngest
	default:
		return false
	}
}

func (m Mode) valid() bool {
	switch m {
	case ModeFull, ModeDownloadOnly, ModeProcessOnly, ModeIngestOnly:
		return true
	default:
		return false
	}
}

// FailurePolicy decides when per-item failures fail a whole phase.
// A negative MaxFailures fails the phase only when every attempted item
// failed. Otherwise the phase fails once Failed exceeds MaxFailures.
type FailurePolicy struct {
	MaxFailures int
}

// DefaultFailurePolicy tolerates anything short of a total wipe-out.
func DefaultFailurePolicy() FailurePolicy {
	return FailurePolicy{MaxFailures: -1}
}

func (p FailurePolicy) failed(result PhaseResult) bool {
	if result.Failed == 0 {
		return false
	}
	if p.MaxFailures < 0 {
		return result.Failed == result.Attempted
	}
	return result.Failed > p.MaxFailures
}

// RunConfiguration is the immutable input to Run and Watch.
type RunConfiguration struct {
	Mode            Mode
	DryRun          bool
	Watch           bool
	Interval        time.Duration
	Debug           bool
	ContinueOnError bool
	Policy          FailurePolicy

	// selections counts phase flags passed to NewRunConfiguration.
	selections int
}

// Flags mirrors the CLI switches that build a RunConfiguration.
type Flags struct {
	FullPipeline    bool
	DownloadOnly    bool
	ProcessOnly     bool
	IngestOnly      bool
	DryRun          bool
	Watch           bool
	Debug           bool
	ContinueOnError bool
	IntervalSeconds int
	MaxFailures     int
}

// NewRunConfiguration translates CLI flags into a RunConfiguration. No phase
// flag means a full run. Conflicting phase flags are reported by Validate.
// An IntervalSeconds of zero selects DefaultInterval.
func NewRunConfiguration(flags Flags) RunConfiguration {
	rc := RunConfiguration{
		Mode:            ModeFull,
		DryRun:          flags.DryRun,
		Watch:           flags.Watch,
		Debug:           flags.Debug,
		ContinueOnError: flags.ContinueOnError,
		Policy:          FailurePolicy{MaxFailures: flags.MaxFailures},
		Interval:        time.Duration(flags.IntervalSeconds) * time.Second,
	}
	if flags.IntervalSeconds == 0 {
		rc.Interval = DefaultInterval
	}
	choices := []struct {
		set  bool
		mode Mode
	}{
		{flags.FullPipeline, ModeFull},
		{flags.DownloadOnly, ModeDownloadOnly},
		{flags.ProcessOnly, ModeProcessOnly},
		{flags.IngestOnly, ModeIngestOnly},
	}
	for _, choice := range choices {
		if choice.set {
			rc.selections++
			rc.Mode = choice.mode
		}
	}
	return rc
}

// Validate rejects configurations no run can honour. Errors carry
// services.ErrConfiguration.
func (rc RunConfiguration) Validate() error {
	if rc.selections > 1 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate",
			"phase selections are mutually exclusive; pass at most one of --full-pipeline, --download-only, --process-only, --ingest-only", nil)
	}
	if !rc.Mode.valid() {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate",
			fmt.Sprintf("unknown mode %q", rc.Mode), nil)
	}
	if rc.Policy.MaxFailures < -1 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate",
			fmt.Sprintf("max failures must be -1 (tolerate all but a total failure) or >= 0, got %d", rc.Policy.MaxFailures), nil)
	}
	if rc.Watch && rc.Interval <= 0 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate",
			fmt.Sprintf("watch interval must be positive, got %s", rc.Interval), nil)
	}
	return nil
}
