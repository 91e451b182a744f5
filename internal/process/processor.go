package process

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"driveingest/internal/config"
	"driveingest/internal/extract"
	"driveingest/internal/logging"
	"driveingest/internal/pipeline"
	"driveingest/internal/services"
	"driveingest/internal/transcribe"
)

const (
	reasonIngested    = "already ingested"
	reasonCached      = "cached artifact"
	reasonUnsupported = "unsupported file type"
)

// SourceLookup answers whether a source path is already in the store.
type SourceLookup interface {
	HasSource(ctx context.Context, sourcePath string) (bool, error)
}

// LookupOpener connects to the store for one phase. release is called when
// the phase returns.
type LookupOpener func(ctx context.Context) (lookup SourceLookup, release func() error, err error)

// Processor turns downloaded files into artifacts. It implements
// pipeline.Processor and pipeline.ProcessPlanner.
type Processor struct {
	cfg         config.Processing
	downloadDir string
	outputDir   string
	extractor   *extract.Extractor
	transcriber transcribe.Transcriber
	openLookup  LookupOpener
	logger      *slog.Logger
	now         func() time.Time
}

// Option customizes a Processor.
type Option func(*Processor)

// WithTranscriber sets the engine used for audio sources.
func WithTranscriber(t transcribe.Transcriber) Option {
	return func(p *Processor) { p.transcriber = t }
}

// WithSourceLookup enables skipping sources that are already ingested,
// using a lookup the caller keeps open.
func WithSourceLookup(lookup SourceLookup) Option {
	return WithLookupOpener(func(context.Context) (SourceLookup, func() error, error) {
		return lookup, func() error { return nil }, nil
	})
}

// WithLookupOpener makes each phase open its own lookup and release it when
// the phase returns.
func WithLookupOpener(open LookupOpener) Option {
	return func(p *Processor) { p.openLookup = open }
}

// WithClock overrides the artifact timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor builds a processor for cfg.
func NewProcessor(cfg *config.Config, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		cfg:         cfg.Processing,
		downloadDir: cfg.Paths.DownloadDir,
		outputDir:   cfg.Paths.ProcessedDir,
		extractor:   extract.New(cfg.Processing.TitleMaxLength),
		logger:      logging.NewComponentLogger(logger, "process"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// source is one file the process phase will consider.
type source struct {
	path string
	kind pipeline.FileKind
}

// Process handles the manifest entries in order, or every supported file
// under the download directory when manifest is nil.
func (p *Processor) Process(ctx context.Context, manifest *pipeline.Manifest) (pipeline.ProcessReport, error) {
	return p.run(ctx, manifest, false)
}

// PlanProcess reports what Process would do. It reads the store and the
// processed directory but transcribes, extracts and writes nothing.
func (p *Processor) PlanProcess(ctx context.Context, manifest *pipeline.Manifest) (pipeline.ProcessReport, error) {
	return p.run(ctx, manifest, true)
}

func (p *Processor) run(ctx context.Context, manifest *pipeline.Manifest, dryRun bool) (pipeline.ProcessReport, error) {
	sources, err := p.sources(manifest)
	if err != nil {
		return pipeline.ProcessReport{}, err
	}
	var lookup SourceLookup
	if p.openLookup != nil {
		opened, release, err := p.openLookup(ctx)
		if err != nil {
			return pipeline.ProcessReport{}, services.Wrap(services.ErrAdapter, "process", "open store", "", err)
		}
		defer func() {
			if err := release(); err != nil {
				p.logger.Warn("close store failed", logging.Error(err))
			}
		}()
		lookup = opened
	}
	var report pipeline.ProcessReport
	for _, src := range sources {
		itemCtx := services.WithItemKey(ctx, src.path)
		report.Items = append(report.Items, p.processOne(itemCtx, lookup, src, dryRun))
	}
	return report, nil
}

func (p *Processor) processOne(ctx context.Context, lookup SourceLookup, src source, dryRun bool) pipeline.Item[pipeline.Artifact] {
	logger := logging.WithContext(ctx, p.logger)
	key := src.path
	stub := pipeline.Artifact{SourcePath: src.path, SourceName: filepath.Base(src.path), Kind: src.kind}

	if src.kind == pipeline.KindOther {
		logger.Debug("skipping unsupported source", logging.String("path", src.path))
		return pipeline.Skip(key, stub, reasonUnsupported)
	}

	if lookup != nil {
		ingested, err := lookup.HasSource(ctx, src.path)
		if err != nil {
			return pipeline.FailErr[pipeline.Artifact](key, fmt.Errorf("store lookup: %w", err))
		}
		if ingested {
			logger.Debug("source already ingested", logging.String("path", src.path))
			return pipeline.Skip(key, stub, reasonIngested)
		}
	}

	artifactPath := ArtifactPath(p.outputDir, src.path)
	if !p.cfg.Reprocess {
		if cached, err := LoadArtifact(artifactPath); err == nil && cached.SourcePath == src.path {
			logger.Debug("reusing cached artifact", logging.String("artifact", artifactPath))
			return pipeline.Skip(key, cached, reasonCached)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(logger, "cached artifact unreadable", "artifact_cache_invalid",
				logging.String("artifact", artifactPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the source is processed again"),
			)
		}
	}

	if dryRun {
		stub.Path = artifactPath
		return pipeline.Ok(key, stub)
	}

	if _, err := os.Stat(src.path); err != nil {
		return pipeline.FailErr[pipeline.Artifact](key, err)
	}

	started := p.now()
	artifact, err := p.build(ctx, src)
	if err != nil {
		logging.WarnWithContext(logger, "processing failed", "process_item_failed",
			logging.String("path", src.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the source is retried on the next run"),
		)
		return pipeline.FailErr[pipeline.Artifact](key, err)
	}
	artifact.Path = artifactPath
	if err := WriteArtifact(artifact); err != nil {
		return pipeline.FailErr[pipeline.Artifact](key, err)
	}
	logger.Info("artifact written",
		logging.String("artifact", artifactPath),
		logging.String("kind", string(src.kind)),
		logging.Int("chars", len(artifact.Text)),
		logging.Duration("elapsed", p.now().Sub(started)),
	)
	return pipeline.Ok(key, artifact)
}

func (p *Processor) build(ctx context.Context, src source) (pipeline.Artifact, error) {
	base := filepath.Base(src.path)
	artifact := pipeline.Artifact{
		SourcePath: src.path,
		SourceName: base,
		Kind:       src.kind,
		CreatedAt:  p.now().UTC(),
	}
	fallback := strings.TrimSuffix(base, filepath.Ext(base))

	switch src.kind {
	case pipeline.KindAudio:
		if p.transcriber == nil {
			return artifact, services.Wrap(services.ErrConfiguration, "process", "transcribe", "no transcriber configured", nil)
		}
		res, err := p.transcriber.Transcribe(ctx, src.path)
		if err != nil {
			return artifact, err
		}
		meta := res.Meta
		artifact.Transcription = &meta
		artifact.Text = res.Text
		artifact.Title = extract.Title(res.Text, fallback, p.cfg.TitleMaxLength)
		if strings.TrimSpace(res.Text) == "" {
			artifact.Text = extract.Placeholder(base)
		}
	case pipeline.KindText:
		res, err := p.extractor.Extract(src.path)
		if err != nil {
			return artifact, err
		}
		artifact.Text = res.Text
		artifact.Title = res.Title
	default:
		return artifact, services.Wrap(services.ErrValidation, "process", "build", reasonUnsupported, nil)
	}
	return artifact, nil
}

// sources lists what to process. Manifest entries keep their order; without
// a manifest the download directory is walked in name order.
func (p *Processor) sources(manifest *pipeline.Manifest) ([]source, error) {
	if manifest != nil {
		out := make([]source, 0, len(manifest.Entries))
		for _, entry := range manifest.Entries {
			out = append(out, source{path: entry.LocalPath, kind: p.kindOf(entry.LocalPath)})
		}
		return out, nil
	}

	var paths []string
	err := filepath.WalkDir(p.downloadDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == p.downloadDir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if p.kindOf(path) != pipeline.KindOther {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrAdapter, "process", "discover", "walk download directory", err)
	}
	sort.Strings(paths)
	out := make([]source, 0, len(paths))
	for _, path := range paths {
		out = append(out, source{path: path, kind: p.kindOf(path)})
	}
	return out, nil
}

// kindOf classifies path by the processing extension lists.
func (p *Processor) kindOf(path string) pipeline.FileKind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case slices.Contains(p.cfg.AudioExtensions, ext):
		return pipeline.KindAudio
	case slices.Contains(p.cfg.TextExtensions, ext) && p.extractor.Supports(path):
		return pipeline.KindText
	default:
		return pipeline.KindOther
	}
}
