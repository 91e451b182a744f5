package ingest

import (
	"context"
	"errors"
	"log/slog"

	"driveingest/internal/config"
	"driveingest/internal/logging"
	"driveingest/internal/pipeline"
	"driveingest/internal/process"
	"driveingest/internal/services"
	"driveingest/internal/store"
)

const reasonIngested = "already ingested"

// Ingestor writes artifacts to a store. It implements pipeline.Ingestor and
// pipeline.IngestPlanner.
type Ingestor struct {
	open         store.Opener
	processedDir string
	logger       *slog.Logger
}

// NewIngestor builds an ingestor that opens the store through open at the
// start of each phase and closes it when the phase returns.
func NewIngestor(open store.Opener, cfg *config.Config, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		open:         open,
		processedDir: cfg.Paths.ProcessedDir,
		logger:       logging.NewComponentLogger(logger, "ingest"),
	}
}

// Ingest stores every artifact in set, or every artifact in the processed
// directory when set is nil.
func (i *Ingestor) Ingest(ctx context.Context, set *pipeline.ArtifactSet) (pipeline.IngestReport, error) {
	var report pipeline.IngestReport
	err := i.withStore(ctx, func(st store.Store) error {
		artifacts, loaded, err := i.artifacts(set)
		if err != nil {
			return err
		}
		report = loaded
		for _, a := range artifacts {
			itemCtx := services.WithItemKey(ctx, a.SourcePath)
			report.Items = append(report.Items, i.ingestOne(itemCtx, st, a))
		}
		return nil
	})
	if err != nil {
		return pipeline.IngestReport{}, err
	}
	return report, nil
}

// PlanIngest reports which artifacts Ingest would store, querying the store
// for duplicates without writing.
func (i *Ingestor) PlanIngest(ctx context.Context, set *pipeline.ArtifactSet) (pipeline.IngestReport, error) {
	var report pipeline.IngestReport
	err := i.withStore(ctx, func(st store.Store) error {
		artifacts, loaded, err := i.artifacts(set)
		if err != nil {
			return err
		}
		report = loaded
		for _, a := range artifacts {
			record := recordFor(a)
			exists, err := st.HasSource(ctx, a.SourcePath)
			switch {
			case err != nil:
				report.Items = append(report.Items, pipeline.FailErr[pipeline.IngestRecord](keyFor(a), err))
			case exists:
				report.Items = append(report.Items, pipeline.Skip(keyFor(a), record, reasonIngested))
			default:
				report.Items = append(report.Items, pipeline.Ok(keyFor(a), record))
			}
		}
		return nil
	})
	if err != nil {
		return pipeline.IngestReport{}, err
	}
	return report, nil
}

// withStore opens the store, checks it answers, runs fn and closes the store
// on every path. Open and ping failures are adapter failures.
func (i *Ingestor) withStore(ctx context.Context, fn func(store.Store) error) error {
	if i.open == nil {
		return services.Wrap(services.ErrConfiguration, "ingest", "store", "store not configured", nil)
	}
	st, err := i.open(ctx)
	if err != nil {
		return services.Wrap(services.ErrAdapter, "ingest", "open store", "", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			i.logger.Warn("close store failed", logging.Error(err))
		}
	}()
	if err := st.Ping(ctx); err != nil {
		return services.Wrap(services.ErrAdapter, "ingest", "store", "store unreachable", err)
	}
	return fn(st)
}

func (i *Ingestor) ingestOne(ctx context.Context, st store.Store, a pipeline.Artifact) pipeline.Item[pipeline.IngestRecord] {
	logger := logging.WithContext(ctx, i.logger)
	record := recordFor(a)
	ids, err := st.IngestArtifact(ctx, a)
	if errors.Is(err, store.ErrDuplicate) {
		logger.Debug("artifact already ingested", logging.String("source", a.SourcePath))
		return pipeline.Skip(keyFor(a), record, reasonIngested)
	}
	if err != nil {
		logging.WarnWithContext(logger, "ingest failed", "ingest_item_failed",
			logging.String("source", a.SourcePath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the artifact stays in the processed directory for the next run"),
		)
		return pipeline.FailErr[pipeline.IngestRecord](keyFor(a), err)
	}
	record.EntryID = ids.EntryID
	record.SourceFileID = ids.SourceFileID
	record.RunID = ids.RunID
	record.UsageID = ids.UsageID
	logger.Info("artifact ingested",
		logging.String("source", a.SourcePath),
		logging.Int64("entry_id", ids.EntryID),
	)
	return pipeline.Ok(keyFor(a), record)
}

// artifacts returns the set's artifacts, or loads them from disk when set is
// nil. Unreadable artifact files become failed items in the returned report.
func (i *Ingestor) artifacts(set *pipeline.ArtifactSet) ([]pipeline.Artifact, pipeline.IngestReport, error) {
	var report pipeline.IngestReport
	if set != nil {
		return set.Artifacts, report, nil
	}
	paths, err := process.ListArtifacts(i.processedDir)
	if err != nil {
		return nil, report, services.Wrap(services.ErrAdapter, "ingest", "discover", "list processed directory", err)
	}
	artifacts := make([]pipeline.Artifact, 0, len(paths))
	for _, path := range paths {
		a, err := process.LoadArtifact(path)
		if err != nil {
			report.Items = append(report.Items, pipeline.FailErr[pipeline.IngestRecord](path, err))
			continue
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, report, nil
}

func recordFor(a pipeline.Artifact) pipeline.IngestRecord {
	return pipeline.IngestRecord{ArtifactPath: a.Path, SourcePath: a.SourcePath}
}

func keyFor(a pipeline.Artifact) string {
	if a.Path != "" {
		return a.Path
	}
	return a.SourcePath
}
