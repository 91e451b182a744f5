package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the working directories.
type Paths struct {
	DownloadDir  string `toml:"download_dir"`
	ProcessedDir string `toml:"processed_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
}

// Drive contains configuration for the Google Drive source.
type Drive struct {
	CredentialsFile       string   `toml:"credentials_file"`
	TokenFile             string   `toml:"token_file"`
	SearchFolders         []string `toml:"search_folders"`
	AudioExtensions       []string `toml:"audio_extensions"`
	TextExtensions        []string `toml:"text_extensions"`
	OtherExtensions       []string `toml:"other_extensions"`
	DeleteAudioFromSource bool     `toml:"delete_audio_from_source"`
	DeleteTextFromSource  bool     `toml:"delete_text_from_source"`
	DeleteOtherFromSource bool     `toml:"delete_other_from_source"`
	PageSize              int      `toml:"page_size"`
	ExportGoogleDocs      bool     `toml:"export_google_docs"`
	RequestTimeout        int      `toml:"request_timeout"`
}

// Transcription contains configuration for turning audio into text.
type Transcription struct {
	Engine              string  `toml:"engine"`
	Model               string  `toml:"model"`
	DetectModel         string  `toml:"detect_model"`
	Language            string  `toml:"language"`
	Temperature         float64 `toml:"temperature"`
	LanguageRouting     bool    `toml:"language_routing"`
	ProbeSeconds        int     `toml:"probe_seconds"`
	APIKey              string  `toml:"api_key"`
	BaseURL             string  `toml:"base_url"`
	WhisperXModel       string  `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool    `toml:"whisperx_cuda_enabled"`
	FFmpegBinary        string  `toml:"ffmpeg_binary"`
	RequestTimeout      int     `toml:"request_timeout"`
}

// Processing contains configuration for the process phase.
type Processing struct {
	AudioExtensions []string `toml:"audio_extensions"`
	TextExtensions  []string `toml:"text_extensions"`
	Reprocess       bool     `toml:"reprocess"`
	TitleMaxLength  int      `toml:"title_max_length"`
}

// Database selects and configures the ingest store.
type Database struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"`
	DSN      string `toml:"dsn"`
	MaxConns int    `toml:"max_conns"`
}

// Pipeline contains orchestration defaults that CLI flags may override.
type Pipeline struct {
	IntervalSeconds int  `toml:"interval_seconds"`
	ContinueOnError bool `toml:"continue_on_error"`
	MaxItemFailures int  `toml:"max_item_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnFailure      bool   `toml:"on_failure"`
	OnPartial      bool   `toml:"on_partial"`
	OnSuccess      bool   `toml:"on_success"`
}

// Config encapsulates all configuration values for driveingest.
//
// Configuration sections by subsystem:
//   - Paths: download, processed, state, and log directories
//   - Drive: OAuth files, folders to scan, extension filters, delete switches
//   - Transcription: engine (openai or whisperx) and model settings
//   - Processing: which local files the process phase picks up
//   - Database: sqlite or postgres ingest store
//   - Pipeline: watch interval and failure policy defaults
//   - Logging: log format, level, and retention
//   - Notifications: ntfy run summaries
type Config struct {
	Paths         Paths         `toml:"paths"`
	Drive         Drive         `toml:"drive"`
	Transcription Transcription `toml:"transcription"`
	Processing    Processing    `toml:"processing"`
	Database      Database      `toml:"database"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// LoadEnv reads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored; with no arguments ".env" in the working directory is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		expanded, err := expandPath(file)
		if err != nil {
			return err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat env file: %w", err)
		}
		if err := godotenv.Load(expanded); err != nil {
			return fmt.Errorf("load env file %s: %w", expanded, err)
		}
	}
	return nil
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("driveingest.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DownloadDir, c.Paths.ProcessedDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "driveingest.lock")
}

// FFmpegBinary returns the ffmpeg executable used for probe slices and WhisperX input.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Transcription.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// UsesPostgres reports whether the ingest store is PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.Database.Driver == DriverPostgres
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// MarshalRedacted renders the effective configuration as TOML with the API
// key and database DSN masked.
func (c *Config) MarshalRedacted() ([]byte, error) {
	clone := *c
	clone.Transcription.APIKey = redact(clone.Transcription.APIKey)
	clone.Database.DSN = redact(clone.Database.DSN)
	return toml.Marshal(clone)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
