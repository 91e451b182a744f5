package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"driveingest/internal/fileutil"
	"driveingest/internal/pipeline"
	"driveingest/internal/textutil"
)

// ArtifactPath is where the artifact for source is written:
// <dir>/<source stem>_<hash8>.json. The hash keeps same-named sources from
// different Drive files apart.
func ArtifactPath(dir, source string) string {
	base := filepath.Base(source)
	stem := textutil.SanitizeFileName(strings.TrimSuffix(base, filepath.Ext(base)))
	return filepath.Join(dir, fmt.Sprintf("%s_%s.json", stem, fileutil.ShortHash(source)))
}

// WriteArtifact stores a as indented JSON at a.Path with an atomic rename.
func WriteArtifact(a pipeline.Artifact) error {
	if a.Path == "" {
		return fmt.Errorf("write artifact for %s: no path", a.SourcePath)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return fileutil.WriteFileAtomic(a.Path, append(data, '\n'), 0o644)
}

// LoadArtifact reads the artifact stored at path.
func LoadArtifact(path string) (pipeline.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Artifact{}, err
	}
	var a pipeline.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return pipeline.Artifact{}, fmt.Errorf("decode artifact %s: %w", filepath.Base(path), err)
	}
	if a.SourcePath == "" {
		return pipeline.Artifact{}, fmt.Errorf("artifact %s has no source_path", filepath.Base(path))
	}
	a.Path = path
	return a, nil
}

// ListArtifacts returns the artifact files in dir sorted by name. A missing
// directory holds no artifacts.
func ListArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
