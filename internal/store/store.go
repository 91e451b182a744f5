package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"driveingest/internal/config"
	"driveingest/internal/pipeline"
	"driveingest/internal/services"
)

// ErrDuplicate reports that a source path has already been ingested.
var ErrDuplicate = errors.New("source already ingested")

// Store is the ingest database.
type Store interface {
	// HasSource reports whether an artifact for sourcePath is stored.
	HasSource(ctx context.Context, sourcePath string) (bool, error)
	// IngestArtifact writes one artifact atomically and returns the ids it
	// generated.
	IngestArtifact(ctx context.Context, artifact pipeline.Artifact) (Ingested, error)
	Stats(ctx context.Context) (Stats, error)
	Recent(ctx context.Context, limit int) ([]RecentEntry, error)
	Ping(ctx context.Context) error
	Close() error
}

// Ingested holds the row ids created for one artifact. RunID and UsageID are
// zero when the artifact has no transcription or no usage block.
type Ingested struct {
	SourceFileID int64
	EntryID      int64
	RunID        int64
	UsageID      int64
}

// Stats summarizes what the store holds.
type Stats struct {
	Backend           string
	Sources           int
	Entries           int
	AudioEntries      int
	TextEntries       int
	TranscriptionRuns int
	TotalTokens       int64
	LastIngestedAt    time.Time
}

// RecentEntry is one row of the status listing.
type RecentEntry struct {
	EntryID    int64
	Title      string
	SourcePath string
	Kind       string
	Engine     string
	IngestedAt time.Time
}

// Open connects to the backend named by database.driver and brings its
// schema up to date.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg.Database.Path)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "open store",
			fmt.Sprintf("unknown database driver %q", cfg.Database.Driver), nil)
	}
}

// Opener connects to the store for the duration of one phase. The caller
// closes what it returns.
type Opener func(ctx context.Context) (Store, error)

// OpenerFor returns an Opener that connects with cfg on every call.
func OpenerFor(cfg *config.Config) Opener {
	return func(ctx context.Context) (Store, error) {
		return Open(ctx, cfg)
	}
}

// Shared returns an Opener that hands out s without giving up ownership:
// closing what it returns leaves s open.
func Shared(s Store) Opener {
	return func(context.Context) (Store, error) {
		if s == nil {
			return nil, services.Wrap(services.ErrConfiguration, "ingest", "open store", "store not configured", nil)
		}
		return borrowed{s}, nil
	}
}

type borrowed struct{ Store }

func (borrowed) Close() error { return nil }

// row is an artifact flattened into column values shared by both backends.
type row struct {
	sourcePath string
	sourceName string
	kind       string
	title      string
	text       string
	mood       string
	tags       string
	createdAt  time.Time
	ingestedAt time.Time
	run        *pipeline.Transcription
	response   string
}

func newRow(a pipeline.Artifact, now time.Time) (row, error) {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return row{}, fmt.Errorf("encode tags: %w", err)
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = now
	}
	r := row{
		sourcePath: a.SourcePath,
		sourceName: a.SourceName,
		kind:       string(a.Kind),
		title:      a.Title,
		text:       a.Text,
		mood:       a.Mood,
		tags:       string(encoded),
		createdAt:  created.UTC(),
		ingestedAt: now.UTC(),
		run:        a.Transcription,
	}
	if r.run != nil {
		r.response = "{}"
		if len(r.run.Response) > 0 && json.Valid(r.run.Response) {
			r.response = string(r.run.Response)
		}
	}
	if r.sourcePath == "" {
		return row{}, services.Wrap(services.ErrValidation, "ingest", "artifact", "source_path is empty", nil)
	}
	return r, nil
}
