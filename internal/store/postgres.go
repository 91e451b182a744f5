package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"driveingest/internal/pipeline"
	"driveingest/internal/services"
)

const postgresPingTimeout = 5 * time.Second

// Postgres stores artifacts in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to dsn, verifies the connection and runs the goose
// migrations.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	if dsn == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "open store", "database.dsn is empty", nil)
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "open store", "parse database.dsn", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool, now: time.Now}, nil
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return migrate(ctx, db, goose.DialectPostgres)
}

func (p *Postgres) Close() error {
	if p == nil || p.pool == nil {
		return nil
	}
	p.pool.Close()
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) HasSource(ctx context.Context, sourcePath string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM source_file WHERE path = $1)`, sourcePath).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup source: %w", err)
	}
	return exists, nil
}

func (p *Postgres) IngestArtifact(ctx context.Context, artifact pipeline.Artifact) (Ingested, error) {
	r, err := newRow(artifact, p.now())
	if err != nil {
		return Ingested{}, err
	}
	var out Ingested
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return out, fmt.Errorf("begin ingest tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO source_file (path, name, kind, ingested_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (path) DO NOTHING RETURNING id`,
		r.sourcePath, r.sourceName, r.kind, r.ingestedAt).Scan(&out.SourceFileID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ingested{}, fmt.Errorf("%w: %s", ErrDuplicate, r.sourcePath)
	}
	if err != nil {
		return Ingested{}, fmt.Errorf("insert source_file: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO entry (source_file_id, title, text, mood, tags, created_at, ingested_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		out.SourceFileID, r.title, r.text, r.mood, r.tags, r.createdAt, r.ingestedAt).Scan(&out.EntryID)
	if err != nil {
		return Ingested{}, fmt.Errorf("insert entry: %w", err)
	}

	if run := r.run; run != nil {
		err = tx.QueryRow(ctx,
			`INSERT INTO transcription_run (entry_id, run_uuid, engine, model, detect_model, forced_language,
			 language_routing_enabled, routed_language, probe_seconds, ffmpeg_used, logprobs_present, response_json, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
			out.EntryID, run.RunUUID, run.Engine, run.Model, run.DetectModel, run.ForcedLanguage,
			run.LanguageRouting, run.RoutedLanguage, run.ProbeSeconds, run.FFmpegUsed, run.LogprobsPresent,
			r.response, r.ingestedAt).Scan(&out.RunID)
		if err != nil {
			return Ingested{}, fmt.Errorf("insert transcription_run: %w", err)
		}
		if u := run.Usage; u != nil {
			err = tx.QueryRow(ctx,
				`INSERT INTO transcription_usage (transcription_run_id, usage_type, input_tokens, output_tokens,
				 total_tokens, audio_tokens, text_tokens) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
				out.RunID, u.Type, u.InputTokens, u.OutputTokens, u.TotalTokens, u.AudioTokens, u.TextTokens).Scan(&out.UsageID)
			if err != nil {
				return Ingested{}, fmt.Errorf("insert transcription_usage: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Ingested{}, fmt.Errorf("commit ingest: %w", err)
	}
	return out, nil
}

func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: "postgres"}
	var last *time.Time
	err := p.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(1) FROM source_file),
			(SELECT COUNT(1) FROM entry),
			(SELECT COUNT(1) FROM source_file WHERE kind = 'audio'),
			(SELECT COUNT(1) FROM source_file WHERE kind = 'text'),
			(SELECT COUNT(1) FROM transcription_run),
			(SELECT COALESCE(SUM(total_tokens), 0)::BIGINT FROM transcription_usage),
			(SELECT MAX(ingested_at) FROM source_file)`).Scan(
		&stats.Sources, &stats.Entries, &stats.AudioEntries, &stats.TextEntries,
		&stats.TranscriptionRuns, &stats.TotalTokens, &last)
	if err != nil {
		return stats, fmt.Errorf("store stats: %w", err)
	}
	if last != nil {
		stats.LastIngestedAt = *last
	}
	return stats, nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]RecentEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := p.pool.Query(ctx, `
		SELECT e.id, e.title, sf.path, sf.kind, COALESCE(tr.engine, ''), e.ingested_at
		FROM entry e
		JOIN source_file sf ON sf.id = e.source_file_id
		LEFT JOIN transcription_run tr ON tr.entry_id = e.id
		ORDER BY e.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent entries: %w", err)
	}
	defer rows.Close()

	var entries []RecentEntry
	for rows.Next() {
		var e RecentEntry
		if err := rows.Scan(&e.EntryID, &e.Title, &e.SourcePath, &e.Kind, &e.Engine, &e.IngestedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
