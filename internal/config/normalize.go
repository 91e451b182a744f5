package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"driveingest/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDrive(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeProcessing()
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.ProcessedDir, err = expandPath(c.Paths.ProcessedDir); err != nil {
		return fmt.Errorf("paths.processed_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDrive() error {
	if value, ok := os.LookupEnv(defaultDriveCredentialsEnv); ok && strings.TrimSpace(value) != "" {
		c.Drive.CredentialsFile = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(defaultDriveTokenEnv); ok && strings.TrimSpace(value) != "" {
		c.Drive.TokenFile = strings.TrimSpace(value)
	}
	var err error
	if c.Drive.CredentialsFile, err = expandPath(strings.TrimSpace(c.Drive.CredentialsFile)); err != nil {
		return fmt.Errorf("drive.credentials_file: %w", err)
	}
	if c.Drive.TokenFile, err = expandPath(strings.TrimSpace(c.Drive.TokenFile)); err != nil {
		return fmt.Errorf("drive.token_file: %w", err)
	}

	if value, ok := os.LookupEnv(defaultDriveSearchFoldersEnv); ok {
		c.Drive.SearchFolders = splitList(value)
	}
	folders := make([]string, 0, len(c.Drive.SearchFolders))
	seen := make(map[string]struct{}, len(c.Drive.SearchFolders))
	for _, folder := range c.Drive.SearchFolders {
		folder = strings.TrimSpace(folder)
		if folder == "" {
			continue
		}
		if _, dup := seen[folder]; dup {
			continue
		}
		seen[folder] = struct{}{}
		folders = append(folders, folder)
	}
	if len(folders) == 0 {
		folders = []string{defaultSearchFolder}
	}
	c.Drive.SearchFolders = folders

	if value, ok := os.LookupEnv("ALLOWED_AUDIO_EXTENSIONS"); ok {
		c.Drive.AudioExtensions = splitList(value)
	}
	if value, ok := os.LookupEnv("ALLOWED_TEXT_EXTENSIONS"); ok {
		c.Drive.TextExtensions = splitList(value)
	}
	if value, ok := os.LookupEnv("ALLOWED_OTHER_EXTENSIONS"); ok {
		c.Drive.OtherExtensions = splitList(value)
	}
	c.Drive.AudioExtensions = normalizeExtensions(c.Drive.AudioExtensions)
	c.Drive.TextExtensions = normalizeExtensions(c.Drive.TextExtensions)
	c.Drive.OtherExtensions = normalizeExtensions(c.Drive.OtherExtensions)

	if value, ok := envBool("DELETE_AUDIO_FROM_SRC"); ok {
		c.Drive.DeleteAudioFromSource = value
	}
	if value, ok := envBool("DELETE_TEXT_FROM_SRC"); ok {
		c.Drive.DeleteTextFromSource = value
	}
	if value, ok := envBool("DELETE_OTHER_FROM_SRC"); ok {
		c.Drive.DeleteOtherFromSource = value
	}
	// Legacy switch applies to every file kind.
	if value, ok := envBool("DELETE_FROM_SRC"); ok {
		c.Drive.DeleteAudioFromSource = value
		c.Drive.DeleteTextFromSource = value
		c.Drive.DeleteOtherFromSource = value
	}

	if c.Drive.PageSize <= 0 {
		c.Drive.PageSize = defaultDrivePageSize
	}
	if c.Drive.RequestTimeout <= 0 {
		c.Drive.RequestTimeout = defaultDriveRequestTimeout
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Engine = strings.ToLower(strings.TrimSpace(c.Transcription.Engine))
	if c.Transcription.Engine == "" {
		c.Transcription.Engine = defaultEngine
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.DetectModel = strings.TrimSpace(c.Transcription.DetectModel)
	if c.Transcription.DetectModel == "" {
		c.Transcription.DetectModel = defaultDetectModel
	}
	if lang := strings.ToLower(strings.TrimSpace(c.Transcription.Language)); lang != "" {
		if code := language.ToISO2(lang); code != "" {
			lang = code
		}
		c.Transcription.Language = lang
	}
	if c.Transcription.ProbeSeconds < minProbeSeconds {
		c.Transcription.ProbeSeconds = minProbeSeconds
	}
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	if c.Transcription.APIKey == "" {
		if value, ok := os.LookupEnv(defaultTranscriptionKeyEnv); ok {
			c.Transcription.APIKey = strings.TrimSpace(value)
		}
	}
	c.Transcription.BaseURL = strings.TrimSpace(c.Transcription.BaseURL)
	if c.Transcription.BaseURL == "" {
		if value, ok := os.LookupEnv(defaultTranscriptionURLEnv); ok {
			c.Transcription.BaseURL = strings.TrimSpace(value)
		}
	}
	c.Transcription.WhisperXModel = strings.TrimSpace(c.Transcription.WhisperXModel)
	if c.Transcription.WhisperXModel == "" {
		c.Transcription.WhisperXModel = defaultWhisperXModel
	}
	c.Transcription.FFmpegBinary = strings.TrimSpace(c.Transcription.FFmpegBinary)
	if c.Transcription.FFmpegBinary == "" {
		c.Transcription.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Transcription.RequestTimeout <= 0 {
		c.Transcription.RequestTimeout = defaultTranscriptionTimeout
	}
}

func (c *Config) normalizeProcessing() {
	c.Processing.AudioExtensions = normalizeExtensions(c.Processing.AudioExtensions)
	if len(c.Processing.AudioExtensions) == 0 {
		c.Processing.AudioExtensions = append([]string(nil), defaultProcessingAudioExtensions...)
	}
	c.Processing.TextExtensions = normalizeExtensions(c.Processing.TextExtensions)
	if len(c.Processing.TextExtensions) == 0 {
		c.Processing.TextExtensions = append([]string(nil), defaultProcessingTextExtensions...)
	}
	if c.Processing.TitleMaxLength <= 0 {
		c.Processing.TitleMaxLength = defaultTitleMaxLength
	}
}

func (c *Config) normalizeDatabase() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "", "sqlite3":
		c.Database.Driver = DriverSQLite
	case "postgresql", "pgx":
		c.Database.Driver = DriverPostgres
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = filepath.Join(c.Paths.StateDir, defaultDatabaseFile)
	}
	var err error
	if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.DSN == "" {
		if value, ok := os.LookupEnv(defaultPostgresDSNEnv); ok {
			c.Database.DSN = strings.TrimSpace(value)
		}
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = defaultMaxConns
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.IntervalSeconds <= 0 {
		c.Pipeline.IntervalSeconds = defaultIntervalSeconds
	}
	if c.Pipeline.MaxItemFailures < -1 {
		c.Pipeline.MaxItemFailures = -1
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(defaultNotificationTopicEnv); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

// normalizeExtensions lowercases, adds the leading dot, and drops duplicates
// while keeping the configured order.
func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envBool(key string) (bool, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	default:
		return false, true
	}
}
