package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"driveingest/internal/pipeline"
	"driveingest/internal/services"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	sqliteTimeLayout        = time.RFC3339Nano
)

// SQLite is the default single-file store.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "open store", "database.path is empty", nil)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection and the pipeline writes sequentially.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if err := migrate(ctx, db, goose.DialectSQLite3); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file location.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) HasSource(ctx context.Context, sourcePath string) (bool, error) {
	var count int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM source_file WHERE path = ?", sourcePath).Scan(&count)
	})
	if err != nil {
		return false, fmt.Errorf("lookup source: %w", err)
	}
	return count > 0, nil
}

func (s *SQLite) IngestArtifact(ctx context.Context, artifact pipeline.Artifact) (Ingested, error) {
	r, err := newRow(artifact, s.now())
	if err != nil {
		return Ingested{}, err
	}
	var out Ingested
	err = retryOnBusy(ctx, func() error {
		var txErr error
		out, txErr = s.ingest(ctx, r)
		return txErr
	})
	return out, err
}

func (s *SQLite) ingest(ctx context.Context, r row) (Ingested, error) {
	var out Ingested
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return out, fmt.Errorf("begin ingest tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM source_file WHERE path = ?", r.sourcePath).Scan(&existing); err != nil {
		return out, fmt.Errorf("lookup source: %w", err)
	}
	if existing > 0 {
		return out, fmt.Errorf("%w: %s", ErrDuplicate, r.sourcePath)
	}

	ingestedAt := r.ingestedAt.Format(sqliteTimeLayout)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO source_file (path, name, kind, ingested_at) VALUES (?, ?, ?, ?)`,
		r.sourcePath, r.sourceName, r.kind, ingestedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return out, fmt.Errorf("%w: %s", ErrDuplicate, r.sourcePath)
		}
		return out, fmt.Errorf("insert source_file: %w", err)
	}
	if out.SourceFileID, err = res.LastInsertId(); err != nil {
		return out, fmt.Errorf("source_file id: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO entry (source_file_id, title, text, mood, tags, created_at, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		out.SourceFileID, r.title, r.text, r.mood, r.tags, r.createdAt.Format(sqliteTimeLayout), ingestedAt)
	if err != nil {
		return out, fmt.Errorf("insert entry: %w", err)
	}
	if out.EntryID, err = res.LastInsertId(); err != nil {
		return out, fmt.Errorf("entry id: %w", err)
	}

	if run := r.run; run != nil {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO transcription_run (entry_id, run_uuid, engine, model, detect_model, forced_language,
			 language_routing_enabled, routed_language, probe_seconds, ffmpeg_used, logprobs_present, response_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			out.EntryID, run.RunUUID, run.Engine, run.Model, run.DetectModel, run.ForcedLanguage,
			run.LanguageRouting, run.RoutedLanguage, run.ProbeSeconds, run.FFmpegUsed, run.LogprobsPresent,
			r.response, ingestedAt)
		if err != nil {
			return out, fmt.Errorf("insert transcription_run: %w", err)
		}
		if out.RunID, err = res.LastInsertId(); err != nil {
			return out, fmt.Errorf("transcription_run id: %w", err)
		}
		if u := run.Usage; u != nil {
			res, err = tx.ExecContext(ctx,
				`INSERT INTO transcription_usage (transcription_run_id, usage_type, input_tokens, output_tokens,
				 total_tokens, audio_tokens, text_tokens) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				out.RunID, u.Type, u.InputTokens, u.OutputTokens, u.TotalTokens, u.AudioTokens, u.TextTokens)
			if err != nil {
				return out, fmt.Errorf("insert transcription_usage: %w", err)
			}
			if out.UsageID, err = res.LastInsertId(); err != nil {
				return out, fmt.Errorf("transcription_usage id: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return out, fmt.Errorf("commit ingest: %w", err)
	}
	return out, nil
}

func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: "sqlite"}
	var last sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(1) FROM source_file),
			(SELECT COUNT(1) FROM entry),
			(SELECT COUNT(1) FROM source_file WHERE kind = 'audio'),
			(SELECT COUNT(1) FROM source_file WHERE kind = 'text'),
			(SELECT COUNT(1) FROM transcription_run),
			(SELECT COALESCE(SUM(total_tokens), 0) FROM transcription_usage),
			(SELECT MAX(ingested_at) FROM source_file)`).Scan(
		&stats.Sources, &stats.Entries, &stats.AudioEntries, &stats.TextEntries,
		&stats.TranscriptionRuns, &stats.TotalTokens, &last)
	if err != nil {
		return stats, fmt.Errorf("store stats: %w", err)
	}
	if last.Valid {
		stats.LastIngestedAt, _ = time.Parse(sqliteTimeLayout, last.String)
	}
	return stats, nil
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]RecentEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.title, sf.path, sf.kind, COALESCE(tr.engine, ''), e.ingested_at
		FROM entry e
		JOIN source_file sf ON sf.id = e.source_file_id
		LEFT JOIN transcription_run tr ON tr.entry_id = e.id
		ORDER BY e.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent entries: %w", err)
	}
	defer rows.Close()

	var entries []RecentEntry
	for rows.Next() {
		var (
			e          RecentEntry
			ingestedAt string
		)
		if err := rows.Scan(&e.EntryID, &e.Title, &e.SourcePath, &e.Kind, &e.Engine, &ingestedAt); err != nil {
			return nil, err
		}
		e.IngestedAt, _ = time.Parse(sqliteTimeLayout, ingestedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
