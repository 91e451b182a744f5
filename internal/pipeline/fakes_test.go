package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"driveingest/internal/pipeline"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

type fakeDownloader struct {
	names   []string
	fail    map[string]bool
	err     error
	calls   int
	plans   int
	onCall  func()
	written []string
}

func (f *fakeDownloader) report() pipeline.DownloadReport {
	report := pipeline.DownloadReport{ByKind: map[pipeline.FileKind]pipeline.KindCount{}}
	for i, name := range f.names {
		id := "id-" + name
		count := report.ByKind[pipeline.KindAudio]
		count.Attempted++
		if f.fail[name] {
			report.Items = append(report.Items, pipeline.Fail[pipeline.ManifestEntry](id, "size is zero"))
			report.ByKind[pipeline.KindAudio] = count
			continue
		}
		count.Succeeded++
		report.ByKind[pipeline.KindAudio] = count
		report.Items = append(report.Items, pipeline.Ok(id, pipeline.ManifestEntry{
			FileID:    id,
			Name:      name,
			Kind:      pipeline.KindAudio,
			LocalPath: filepath.Join("/downloads", fmt.Sprintf("%03d_%s", i+1, id), name),
			Size:      10,
		}))
	}
	return report
}

func (f *fakeDownloader) Download(context.Context) (pipeline.DownloadReport, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return pipeline.DownloadReport{}, f.err
	}
	report := f.report()
	for _, item := range report.Items {
		if item.Outcome == pipeline.OutcomeOK {
			f.written = append(f.written, item.Value.LocalPath)
		}
	}
	return report, nil
}

func (f *fakeDownloader) PlanDownload(context.Context) (pipeline.DownloadReport, error) {
	f.plans++
	if f.err != nil {
		return pipeline.DownloadReport{}, f.err
	}
	return f.report(), nil
}

type fakeProcessor struct {
	fail      map[string]bool
	err       error
	calls     int
	plans     int
	received  []*pipeline.Manifest
	discover  []pipeline.ManifestEntry
	artifacts []string
}

func (f *fakeProcessor) report(manifest *pipeline.Manifest) pipeline.ProcessReport {
	entries := f.discover
	if manifest != nil {
		entries = manifest.Entries
	}
	var report pipeline.ProcessReport
	for _, entry := range entries {
		if f.fail[entry.Name] {
			report.Items = append(report.Items, pipeline.Fail[pipeline.Artifact](entry.LocalPath, "transcription failed"))
			continue
		}
		report.Items = append(report.Items, pipeline.Ok(entry.LocalPath, pipeline.Artifact{
			Path:       filepath.Join("/processed", entry.Name+".json"),
			SourcePath: entry.LocalPath,
			SourceName: entry.Name,
			Kind:       entry.Kind,
			Title:      entry.Name,
			Text:       "text of " + entry.Name,
		}))
	}
	return report
}

func (f *fakeProcessor) Process(_ context.Context, manifest *pipeline.Manifest) (pipeline.ProcessReport, error) {
	f.calls++
	f.received = append(f.received, manifest)
	if f.err != nil {
		return pipeline.ProcessReport{}, f.err
	}
	report := f.report(manifest)
	for _, item := range report.Items {
		if item.Outcome == pipeline.OutcomeOK {
			f.artifacts = append(f.artifacts, item.Value.Path)
		}
	}
	return report, nil
}

func (f *fakeProcessor) PlanProcess(_ context.Context, manifest *pipeline.Manifest) (pipeline.ProcessReport, error) {
	f.plans++
	if f.err != nil {
		return pipeline.ProcessReport{}, f.err
	}
	return f.report(manifest), nil
}

type fakeIngestor struct {
	err      error
	calls    int
	plans    int
	received []*pipeline.ArtifactSet
	stored   map[string]int64
	onDisk   []pipeline.Artifact
}

func (f *fakeIngestor) items(set *pipeline.ArtifactSet, write bool) pipeline.IngestReport {
	artifacts := f.onDisk
	if set != nil {
		artifacts = set.Artifacts
	}
	if f.stored == nil {
		f.stored = map[string]int64{}
	}
	var report pipeline.IngestReport
	for _, artifact := range artifacts {
		if _, ok := f.stored[artifact.SourcePath]; ok {
			report.Items = append(report.Items, pipeline.Skip(artifact.Path, pipeline.IngestRecord{}, "already ingested"))
			continue
		}
		id := int64(len(f.stored) + 1)
		if write {
			f.stored[artifact.SourcePath] = id
		}
		report.Items = append(report.Items, pipeline.Ok(artifact.Path, pipeline.IngestRecord{
			ArtifactPath: artifact.Path,
			SourcePath:   artifact.SourcePath,
			EntryID:      id,
			SourceFileID: id,
		}))
	}
	return report
}

func (f *fakeIngestor) Ingest(_ context.Context, set *pipeline.ArtifactSet) (pipeline.IngestReport, error) {
	f.calls++
	f.received = append(f.received, set)
	if f.err != nil {
		return pipeline.IngestReport{}, f.err
	}
	return f.items(set, true), nil
}

func (f *fakeIngestor) PlanIngest(_ context.Context, set *pipeline.ArtifactSet) (pipeline.IngestReport, error) {
	f.plans++
	if f.err != nil {
		return pipeline.IngestReport{}, f.err
	}
	return f.items(set, false), nil
}

// liveOnly hides the planner methods of the wrapped adapters.
type liveOnlyProcessor struct{ pipeline.Processor }

type liveOnlyIngestor struct{ pipeline.Ingestor }

var errDriveDown = errors.New("drive api unavailable")
