package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"driveingest/internal/logging"
	"driveingest/internal/services"
)

// Orchestrator runs the pipeline phases against a set of adapters.
type Orchestrator struct {
	adapters Adapters
	logger   *slog.Logger
	clock    Clock
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for run and phase events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewOrchestrator constructs an orchestrator for the given adapters.
func NewOrchestrator(adapters Adapters, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		adapters: adapters,
		logger:   logging.NewNop(),
		clock:    SystemClock{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "pipeline")
	return o
}

// run carries the mutable state of one Run invocation.
type run struct {
	state     State
	manifest  *Manifest
	artifacts *ArtifactSet
}

func (r *run) moveTo(to State) {
	next, err := transition(r.state, to)
	if err != nil {
		panic(fmt.Sprintf("pipeline: %v", err))
	}
	r.state = next
}

// Run executes the phases selected by rc and returns the run summary. The
// error is non-nil only when rc is invalid or an adapter for a selected phase
// is missing; failed runs are reported through Summary.Status.
//
// Adapters run under a context detached from ctx's cancellation, so a phase
// that has started always completes.
func (o *Orchestrator) Run(ctx context.Context, rc RunConfiguration) (Summary, error) {
	started := o.clock.Now()
	summary := Summary{
		RunID:      uuid.NewString(),
		StartedAt:  started,
		DryRun:     rc.DryRun,
		Mode:       rc.Mode,
		Phases:     []PhaseResult{},
		FinalState: StateIdle,
	}
	if err := rc.Validate(); err != nil {
		summary.Status = RunFailed
		summary.FinalState = StateFailed
		return summary, err
	}
	if err := o.checkAdapters(rc.Mode); err != nil {
		summary.Status = RunFailed
		summary.FinalState = StateFailed
		return summary, err
	}

	ctx = services.WithRunID(ctx, summary.RunID)
	work := context.WithoutCancel(ctx)
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("pipeline run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("mode", string(rc.Mode)),
		logging.Bool("dry_run", rc.DryRun),
	)

	state := &run{state: StateIdle}
	for _, phase := range Phases {
		if !rc.Mode.Selects(phase) {
			continue
		}
		state.moveTo(phase.activeState())

		result, adapterErr := o.runPhase(services.WithPhase(work, phase.String()), rc, phase, state)
		summary.Phases = append(summary.Phases, result)

		if adapterErr != nil {
			state.moveTo(StateFailed)
			break
		}
		if result.Status == StatusFailed && !rc.ContinueOnError {
			logger.Warn("phase failed; stopping run",
				logging.String(logging.FieldPhase, phase.String()),
				logging.String(logging.FieldEventType, "run_halted"),
				logging.String(logging.FieldErrorHint, "rerun with --continue-on-error to run later phases anyway"),
				logging.Int("failed", result.Failed),
				logging.Int("attempted", result.Attempted),
			)
			state.moveTo(StateFailed)
			break
		}
	}
	if state.state.active() {
		state.moveTo(StateDone)
	}

	summary.FinalState = state.state
	summary.Status = deriveStatus(summary.Phases)
	summary.Elapsed = o.clock.Now().Sub(started)

	logger.Info("pipeline run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("status", string(summary.Status)),
		logging.String("final_state", string(summary.FinalState)),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func (o *Orchestrator) checkAdapters(mode Mode) error {
	missing := func(p Phase) error {
		return services.Wrap(services.ErrConfiguration, p.String(), "configure",
			"no adapter configured for selected phase", nil)
	}
	if mode.Selects(PhaseDownload) && o.adapters.Downloader == nil {
		return missing(PhaseDownload)
	}
	if mode.Selects(PhaseProcess) && o.adapters.Processor == nil {
		return missing(PhaseProcess)
	}
	if mode.Selects(PhaseIngest) && o.adapters.Ingestor == nil {
		return missing(PhaseIngest)
	}
	return nil
}

// runPhase invokes one adapter, folds its report into a PhaseResult, and
// stores the phase output on state for the next phase.
func (o *Orchestrator) runPhase(ctx context.Context, rc RunConfiguration, phase Phase, state *run) (PhaseResult, error) {
	logger := logging.WithContext(ctx, o.logger)
	result := PhaseResult{Phase: phase, Status: StatusRunning}
	started := o.clock.Now()

	logger.Info("phase started",
		logging.String(logging.FieldEventType, "phase_start"),
		logging.Int("input_items", o.inputSize(phase, state)),
	)

	var err error
	switch phase {
	case PhaseDownload:
		var report DownloadReport
		if rc.DryRun {
			report, err = planDownload(ctx, o.adapters.Downloader)
		} else {
			report, err = o.adapters.Downloader.Download(ctx)
		}
		if err == nil {
			tally(&result, report.Items)
			logItems(logger, report.Items)
			state.manifest = report.Manifest()
			for kind, count := range report.ByKind {
				logger.Debug("download kind tally",
					logging.String("kind", string(kind)),
					logging.Int("succeeded", count.Succeeded),
					logging.Int("attempted", count.Attempted),
				)
			}
		}
	case PhaseProcess:
		var report ProcessReport
		if rc.DryRun {
			report, err = planProcess(ctx, o.adapters.Processor, state.manifest)
		} else {
			report, err = o.adapters.Processor.Process(ctx, state.manifest)
		}
		if err == nil {
			tally(&result, report.Items)
			logItems(logger, report.Items)
			state.artifacts = report.Artifacts()
		}
	case PhaseIngest:
		var report IngestReport
		if rc.DryRun {
			report, err = planIngest(ctx, o.adapters.Ingestor, state.artifacts)
		} else {
			report, err = o.adapters.Ingestor.Ingest(ctx, state.artifacts)
		}
		if err == nil {
			tally(&result, report.Items)
			logItems(logger, report.Items)
		}
	}
	result.Elapsed = o.clock.Now().Sub(started)

	if err != nil {
		eventType, hint := "phase_adapter_failed", "check credentials, connectivity and paths for this phase"
		switch {
		case !services.IsTotalFailure(err):
			eventType, hint = "phase_misconfigured", "fix the configuration named in the error and rerun"
		case !errors.Is(err, services.ErrAdapter):
			err = services.Wrap(services.ErrAdapter, phase.String(), "run", "adapter failed", err)
		}
		result = PhaseResult{
			Phase:        phase,
			Status:       StatusFailed,
			Elapsed:      result.Elapsed,
			AdapterError: err.Error(),
		}
		logging.ErrorWithContext(logger, "phase adapter failed; run stopped", eventType,
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
			logging.String(logging.FieldErrorHint, hint),
			logging.Duration("elapsed", result.Elapsed),
		)
		return result, err
	}

	switch {
	case result.Attempted == 0:
		result.Status = StatusSkipped
	case rc.Policy.failed(result):
		result.Status = StatusFailed
	default:
		result.Status = StatusCompleted
	}

	attrs := append([]logging.Attr{
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.String("status", string(result.Status)),
		logging.Duration("elapsed", result.Elapsed),
	}, logging.Counts(result.Attempted, result.Succeeded, result.Failed, result.Skipped)...)
	logger.Info("phase finished", logging.Args(attrs...)...)
	return result, nil
}

func (o *Orchestrator) inputSize(phase Phase, state *run) int {
	switch phase {
	case PhaseProcess:
		return state.manifest.Len()
	case PhaseIngest:
		return state.artifacts.Len()
	default:
		return 0
	}
}

func logItems[T any](logger *slog.Logger, items []Item[T]) {
	for _, item := range items {
		switch item.Outcome {
		case OutcomeFailed:
			logger.Warn("item failed",
				logging.String(logging.FieldItemKey, item.Key),
				logging.String("reason", item.Reason),
				logging.String(logging.FieldEventType, "item_failed"),
				logging.String(logging.FieldErrorHint, "see reason; the item is retried on the next run"),
				logging.String(logging.FieldImpact, "item not carried to later phases"),
			)
		case OutcomeSkipped:
			logger.Debug("item skipped",
				logging.String(logging.FieldItemKey, item.Key),
				logging.String("reason", item.Reason),
			)
		default:
			logger.Debug("item ok", logging.String(logging.FieldItemKey, item.Key))
		}
	}
}
