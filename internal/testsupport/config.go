package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"driveingest/internal/config"
)

// ConfigOption adjusts a generated test configuration.
type ConfigOption func(t testing.TB, cfg *config.Config)

// NewConfig returns a default config whose directories, Drive files and
// database all live under a fresh t.TempDir.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	state := filepath.Join(root, "state")
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(root, "downloads")
	cfg.Paths.ProcessedDir = filepath.Join(root, "processed")
	cfg.Paths.StateDir = state
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Drive.CredentialsFile = filepath.Join(state, "credentials.json")
	cfg.Drive.TokenFile = filepath.Join(state, "token.json")
	cfg.Database.Path = filepath.Join(state, "driveingest.db")
	cfg.Transcription.APIKey = "test"

	for _, opt := range opts {
		opt(t, &cfg)
	}
	return &cfg
}

// WithReprocess makes the processor ignore cached artifacts.
func WithReprocess() ConfigOption {
	return func(_ testing.TB, cfg *config.Config) {
		cfg.Processing.Reprocess = true
	}
}

// WithStubbedBinaries puts no-op executables named names (ffmpeg and uvx
// when empty) at the front of PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, cfg *config.Config) {
		t.Helper()
		if len(names) == 0 {
			names = []string{"ffmpeg", "uvx"}
		}
		binDir := filepath.Join(filepath.Dir(cfg.Paths.StateDir), "bin")
		for _, name := range names {
			WriteExecutable(t, filepath.Join(binDir, name), "exit 0")
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
