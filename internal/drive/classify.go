package drive

import (
	"path/filepath"
	"strings"

	"driveingest/internal/config"
	"driveingest/internal/pipeline"
)

// classifier maps remote files to pipeline kinds using the configured
// extension lists.
type classifier struct {
	audio      map[string]struct{}
	text       map[string]struct{}
	other      map[string]struct{}
	exportDocs bool
}

func newClassifier(cfg config.Drive) classifier {
	return classifier{
		audio:      extSet(cfg.AudioExtensions),
		text:       extSet(cfg.TextExtensions),
		other:      extSet(cfg.OtherExtensions),
		exportDocs: cfg.ExportGoogleDocs,
	}
}

func extSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return set
}

// classify returns the kind of f, the local file name to use, and whether the
// file is wanted at all. Google Docs are exported to HTML and named
// accordingly.
func (c classifier) classify(f RemoteFile) (pipeline.FileKind, string, bool) {
	if f.MimeType == GoogleDocMimeType {
		if !c.exportDocs {
			return "", "", false
		}
		return pipeline.KindText, f.Name + ".html", true
	}
	if strings.HasPrefix(f.MimeType, "application/vnd.google-apps.") {
		return "", "", false
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if ext == "" {
		return "", "", false
	}
	if _, ok := c.audio[ext]; ok {
		return pipeline.KindAudio, f.Name, true
	}
	if _, ok := c.text[ext]; ok {
		return pipeline.KindText, f.Name, true
	}
	if _, ok := c.other[ext]; ok {
		return pipeline.KindOther, f.Name, true
	}
	return "", "", false
}
