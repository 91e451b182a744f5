package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"driveingest/internal/config"
	"driveingest/internal/fileutil"
	"driveingest/internal/logging"
	"driveingest/internal/pipeline"
	"driveingest/internal/services"
	"driveingest/internal/textutil"
)

// Downloader copies wanted files from the configured Drive folders into the
// download directory. It implements pipeline.Downloader and
// pipeline.DownloadPlanner.
type Downloader struct {
	client      Client
	cfg         config.Drive
	downloadDir string
	classify    classifier
	logger      *slog.Logger
}

// NewDownloader constructs a downloader for the given Drive settings.
func NewDownloader(client Client, cfg *config.Config, logger *slog.Logger) *Downloader {
	return &Downloader{
		client:      client,
		cfg:         cfg.Drive,
		downloadDir: cfg.Paths.DownloadDir,
		classify:    newClassifier(cfg.Drive),
		logger:      logging.NewComponentLogger(logger, "drive"),
	}
}

// candidate is a wanted remote file with its destination on disk.
type candidate struct {
	file  RemoteFile
	kind  pipeline.FileKind
	name  string
	entry pipeline.ManifestEntry
}

// Download fetches every wanted file not already on disk. Files present from
// an earlier run are reported as skipped and still appear in the manifest.
func (d *Downloader) Download(ctx context.Context) (pipeline.DownloadReport, error) {
	candidates, listFailures, err := d.discover(ctx)
	if err != nil {
		return pipeline.DownloadReport{}, err
	}
	report := newReport()
	report.Items = append(report.Items, listFailures...)

	for _, c := range candidates {
		itemCtx := services.WithItemKey(ctx, c.file.ID)
		item := d.fetch(itemCtx, c)
		report.record(c.kind, item)
		if item.Outcome == pipeline.OutcomeOK {
			d.deleteFromSource(itemCtx, c)
		}
	}
	d.logKinds(report)
	return report.DownloadReport, nil
}

// PlanDownload lists the folders and reports what Download would fetch
// without writing to disk or deleting anything.
func (d *Downloader) PlanDownload(ctx context.Context) (pipeline.DownloadReport, error) {
	candidates, listFailures, err := d.discover(ctx)
	if err != nil {
		return pipeline.DownloadReport{}, err
	}
	report := newReport()
	report.Items = append(report.Items, listFailures...)
	for _, c := range candidates {
		if present, _, _ := fileutil.NonEmptyFile(c.entry.LocalPath); present {
			report.record(c.kind, pipeline.Skip(c.file.ID, c.entry, "already downloaded"))
			continue
		}
		report.record(c.kind, pipeline.Ok(c.file.ID, c.entry))
	}
	return report.DownloadReport, nil
}

// discover lists every search folder and numbers wanted files per kind in
// discovery order. A file already downloaded under another number keeps its
// directory. It fails only when no folder could be listed.
func (d *Downloader) discover(ctx context.Context) ([]candidate, []pipeline.Item[pipeline.ManifestEntry], error) {
	if d.client == nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "download", "discover", "Drive client not configured", nil)
	}
	var (
		candidates []candidate
		failures   []pipeline.Item[pipeline.ManifestEntry]
		lastErr    error
		listed     int
		seq        = map[pipeline.FileKind]int{}
		existing   = d.existingDirs()
	)
	for _, folder := range d.cfg.SearchFolders {
		listCtx, cancel := d.requestContext(ctx)
		files, err := d.client.List(listCtx, folder, d.cfg.PageSize)
		cancel()
		if err != nil {
			lastErr = err
			logging.WarnWithContext(d.logger, "drive folder listing failed", "drive_list_failed",
				logging.String("folder", folder),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the folder id in drive.search_folders and the OAuth token"),
				logging.String(logging.FieldImpact, "files in this folder are not downloaded this run"),
			)
			failures = append(failures, pipeline.FailErr[pipeline.ManifestEntry]("folder:"+folder, err))
			continue
		}
		listed++
		wanted := 0
		for _, f := range files {
			kind, name, ok := d.classify.classify(f)
			if !ok {
				d.logger.Debug("ignoring unsupported file", logging.String("name", f.Name), logging.String("mime_type", f.MimeType))
				continue
			}
			seq[kind]++
			wanted++
			dir, ok := existing[f.ID]
			if !ok {
				dir = fmt.Sprintf("%03d_%s", seq[kind], f.ID)
			}
			dest := filepath.Join(d.downloadDir, dir, textutil.SanitizeFileName(name))
			candidates = append(candidates, candidate{
				file: f,
				kind: kind,
				name: name,
				entry: pipeline.ManifestEntry{
					FileID:      f.ID,
					Name:        name,
					MimeType:    f.MimeType,
					Kind:        kind,
					LocalPath:   dest,
					Size:        f.Size,
					CreatedTime: f.CreatedTime,
					Folder:      folder,
				},
			})
		}
		d.logger.Info("drive folder listed",
			logging.String("folder", folder),
			logging.Int("files", len(files)),
			logging.Int("wanted", wanted),
		)
	}
	if listed == 0 && len(d.cfg.SearchFolders) > 0 {
		return nil, nil, services.Wrap(services.ErrAdapter, "download", "list folders", "no Drive folder could be listed", lastErr)
	}
	return candidates, failures, nil
}

// existingDirs maps Drive file IDs to the NNN_<id> directories left by
// earlier runs.
func (d *Downloader) existingDirs() map[string]string {
	dirs := map[string]string{}
	entries, err := os.ReadDir(d.downloadDir)
	if err != nil {
		return dirs
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		prefix, id, ok := strings.Cut(e.Name(), "_")
		if !ok || id == "" || !isDigits(prefix) {
			continue
		}
		if _, seen := dirs[id]; !seen {
			dirs[id] = e.Name()
		}
	}
	return dirs
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (d *Downloader) fetch(ctx context.Context, c candidate) pipeline.Item[pipeline.ManifestEntry] {
	logger := logging.WithContext(ctx, d.logger)
	present, size, err := fileutil.NonEmptyFile(c.entry.LocalPath)
	if err != nil {
		return pipeline.FailErr[pipeline.ManifestEntry](c.file.ID, fmt.Errorf("stat %s: %w", c.entry.LocalPath, err))
	}
	if present {
		entry := c.entry
		entry.Size = size
		logger.Debug("file already downloaded", logging.String("path", entry.LocalPath))
		return pipeline.Skip(c.file.ID, entry, "already downloaded")
	}

	reqCtx, cancel := d.requestContext(ctx)
	defer cancel()

	var body io.ReadCloser
	if c.file.MimeType == GoogleDocMimeType {
		body, err = d.client.Export(reqCtx, c.file.ID, ExportMimeType)
	} else {
		body, err = d.client.Download(reqCtx, c.file.ID)
	}
	if err != nil {
		return pipeline.FailErr[pipeline.ManifestEntry](c.file.ID, err)
	}
	defer body.Close()

	written, err := fileutil.WriteStreamAtomic(c.entry.LocalPath, body, 0o644)
	if err != nil {
		return pipeline.FailErr[pipeline.ManifestEntry](c.file.ID, err)
	}
	if written <= 0 {
		if rmErr := os.Remove(c.entry.LocalPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Debug("remove empty download failed", logging.Error(rmErr))
		}
		_ = os.Remove(filepath.Dir(c.entry.LocalPath))
		return pipeline.Fail[pipeline.ManifestEntry](c.file.ID, "downloaded file is empty")
	}

	entry := c.entry
	entry.Size = written
	logger.Info("file downloaded",
		logging.String("name", c.name),
		logging.String("kind", string(c.kind)),
		logging.Int64("bytes", written),
		logging.String(logging.FieldEventType, "file_downloaded"),
	)
	return pipeline.Ok(c.file.ID, entry)
}

func (d *Downloader) deleteFromSource(ctx context.Context, c candidate) {
	if !d.deleteEnabled(c.kind) {
		return
	}
	reqCtx, cancel := d.requestContext(ctx)
	defer cancel()
	if err := d.client.Delete(reqCtx, c.file.ID); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "delete from Drive failed; file kept in source", "drive_delete_failed",
			logging.String("name", c.name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the token has the full drive scope"),
			logging.String(logging.FieldImpact, "file is listed again next run and skipped as already downloaded"),
		)
		return
	}
	d.logger.Info("file deleted from Drive", logging.String("name", c.name), logging.String(logging.FieldEventType, "drive_deleted"))
}

func (d *Downloader) deleteEnabled(kind pipeline.FileKind) bool {
	switch kind {
	case pipeline.KindAudio:
		return d.cfg.DeleteAudioFromSource
	case pipeline.KindText:
		return d.cfg.DeleteTextFromSource
	case pipeline.KindOther:
		return d.cfg.DeleteOtherFromSource
	default:
		return false
	}
}

func (d *Downloader) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(d.cfg.RequestTimeout)*time.Second)
}

func (d *Downloader) logKinds(report reportBuilder) {
	for _, kind := range []pipeline.FileKind{pipeline.KindAudio, pipeline.KindText, pipeline.KindOther} {
		count, ok := report.ByKind[kind]
		if !ok {
			continue
		}
		d.logger.Info("download tally",
			logging.String("kind", string(kind)),
			logging.Int("succeeded", count.Succeeded),
			logging.Int("attempted", count.Attempted),
		)
	}
}

type reportBuilder struct {
	pipeline.DownloadReport
}

func newReport() reportBuilder {
	return reportBuilder{pipeline.DownloadReport{ByKind: map[pipeline.FileKind]pipeline.KindCount{}}}
}

// record appends item and updates the per-kind tally. Files already on disk
// count as successes.
func (r *reportBuilder) record(kind pipeline.FileKind, item pipeline.Item[pipeline.ManifestEntry]) {
	r.Items = append(r.Items, item)
	count := r.ByKind[kind]
	count.Attempted++
	if item.Outcome != pipeline.OutcomeFailed {
		count.Succeeded++
	}
	r.ByKind[kind] = count
}
