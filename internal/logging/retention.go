package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneRunLogs deletes per-run log files in dir older than retentionDays.
// The log of the current run is passed as keep and is never removed.
// A retentionDays value of 0 or less disables pruning. It returns the number
// of files removed.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, keep string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	return pruneMatching(logger, dir, RunLogPattern, time.Now().AddDate(0, 0, -retentionDays), keep)
}

func pruneMatching(logger *slog.Logger, dir, pattern string, cutoff time.Time, keep string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var keepAbs string
	if trimmed := strings.TrimSpace(keep); trimmed != "" {
		if abs, err := filepath.Abs(trimmed); err == nil {
			keepAbs = abs
		}
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if matched, err := filepath.Match(pattern, name); err != nil || !matched {
			continue
		}
		fullPath := filepath.Join(dir, name)
		if abs, err := filepath.Abs(fullPath); err == nil {
			fullPath = abs
		}
		if fullPath == keepAbs {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "run log prune failed; file remains", "log_retention_failed",
				String("path", fullPath),
				Error(err),
				String(FieldErrorHint, "check file permissions on log_dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("run log pruned",
				String("path", fullPath),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
	return removed
}
