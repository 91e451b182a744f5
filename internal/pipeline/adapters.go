package pipeline

import (
	"context"
	"encoding/json"
	"time"
)

// FileKind classifies a source file by extension.
type FileKind string

const (
	KindAudio FileKind = "audio"
	KindText  FileKind = "text"
	KindOther FileKind = "other"
)

// ManifestEntry is one file confirmed on local disk by the download phase.
type ManifestEntry struct {
	FileID      string    `json:"file_id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mime_type,omitempty"`
	Kind        FileKind  `json:"kind"`
	LocalPath   string    `json:"local_path"`
	Size        int64     `json:"size"`
	CreatedTime time.Time `json:"created_time"`
	Folder      string    `json:"folder,omitempty"`
}

// Manifest is the handoff from download to process.
type Manifest struct {
	Entries []ManifestEntry
}

// Len returns the number of entries; a nil manifest has none.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// KindCount tallies download outcomes for one file kind.
type KindCount struct {
	Succeeded int
	Attempted int
}

// DownloadReport is returned by Downloader.Download.
type DownloadReport struct {
	Items  []Item[ManifestEntry]
	ByKind map[FileKind]KindCount
}

// Manifest returns the files available on disk after the phase: downloaded
// entries plus entries skipped because they were already present.
func (r DownloadReport) Manifest() *Manifest {
	return &Manifest{Entries: forward(r.Items, func(e ManifestEntry) bool {
		return e.LocalPath != ""
	})}
}

// Usage holds token accounting reported by a transcription API.
type Usage struct {
	Type         string `json:"type,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	TotalTokens  int    `json:"total_tokens,omitempty"`
	AudioTokens  int    `json:"audio_tokens,omitempty"`
	TextTokens   int    `json:"text_tokens,omitempty"`
}

// Transcription describes how an audio artifact was produced.
type Transcription struct {
	RunUUID         string          `json:"run_uuid"`
	Engine          string          `json:"engine"`
	Model           string          `json:"model"`
	DetectModel     string          `json:"detect_model,omitempty"`
	ForcedLanguage  string          `json:"forced_language,omitempty"`
	LanguageRouting bool            `json:"language_routing_enabled"`
	RoutedLanguage  string          `json:"routed_language,omitempty"`
	ProbeSeconds    int             `json:"probe_seconds,omitempty"`
	FFmpegUsed      bool            `json:"ffmpeg_used"`
	LogprobsPresent bool            `json:"logprobs_present"`
	Response        json.RawMessage `json:"response,omitempty"`
	Usage           *Usage          `json:"usage,omitempty"`
}

// Artifact is the processed text for one source file. Path is the artifact's
// own location on disk and is not part of the stored document.
type Artifact struct {
	Path          string         `json:"-"`
	SourcePath    string         `json:"source_path"`
	SourceName    string         `json:"source_name"`
	Kind          FileKind       `json:"kind"`
	Title         string         `json:"title"`
	Text          string         `json:"text"`
	Mood          string         `json:"mood,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Transcription *Transcription `json:"transcription,omitempty"`
}

// ArtifactSet is the handoff from process to ingest.
type ArtifactSet struct {
	Artifacts []Artifact
}

// Len returns the number of artifacts; a nil set has none.
func (s *ArtifactSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Artifacts)
}

// ProcessReport is returned by Processor.Process.
type ProcessReport struct {
	Items []Item[Artifact]
}

// Artifacts returns what ingest should load: fresh artifacts plus skipped
// items that reused a cached artifact. Items skipped because their source
// is already ingested carry no artifact and are dropped.
func (r ProcessReport) Artifacts() *ArtifactSet {
	return &ArtifactSet{Artifacts: forward(r.Items, func(a Artifact) bool {
		return a.Path != ""
	})}
}

// IngestRecord holds the ids generated for one ingested artifact.
type IngestRecord struct {
	ArtifactPath string `json:"artifact_path"`
	SourcePath   string `json:"source_path"`
	EntryID      int64  `json:"entry_id"`
	SourceFileID int64  `json:"source_file_id"`
	RunID        int64  `json:"run_id,omitempty"`
	UsageID      int64  `json:"usage_id,omitempty"`
}

// IngestReport is returned by Ingestor.Ingest.
type IngestReport struct {
	Items []Item[IngestRecord]
}

// Downloader fetches remote files to local disk. A returned error means the
// phase could not run at all; per-file problems belong in the report.
type Downloader interface {
	Download(ctx context.Context) (DownloadReport, error)
}

// Processor turns local files into artifacts. A nil manifest asks the
// processor to discover candidates in its download directory.
type Processor interface {
	Process(ctx context.Context, manifest *Manifest) (ProcessReport, error)
}

// Ingestor loads artifacts into the store. A nil set asks the ingestor to
// load artifacts from its processed directory.
type Ingestor interface {
	Ingest(ctx context.Context, artifacts *ArtifactSet) (IngestReport, error)
}

// DownloadPlanner is implemented by downloaders that can report what a
// download would do without writing anything.
type DownloadPlanner interface {
	PlanDownload(ctx context.Context) (DownloadReport, error)
}

// ProcessPlanner is the dry-run counterpart of Processor.
type ProcessPlanner interface {
	PlanProcess(ctx context.Context, manifest *Manifest) (ProcessReport, error)
}

// IngestPlanner is the dry-run counterpart of Ingestor.
type IngestPlanner interface {
	PlanIngest(ctx context.Context, artifacts *ArtifactSet) (IngestReport, error)
}

// Adapters bundles the phase implementations. An adapter that also
// implements the matching planner interface is asked to plan in dry-run mode.
type Adapters struct {
	Downloader Downloader
	Processor  Processor
	Ingestor   Ingestor
}
