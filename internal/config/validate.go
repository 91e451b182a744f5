package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDrive(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"drive.request_timeout":         c.Drive.RequestTimeout,
		"transcription.request_timeout": c.Transcription.RequestTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ProcessedDir) == "" {
		return errors.New("paths.processed_dir must be set")
	}
	if c.Paths.DownloadDir == c.Paths.ProcessedDir {
		return errors.New("paths.processed_dir must differ from paths.download_dir")
	}
	return nil
}

func (c *Config) validateDrive() error {
	if len(c.Drive.SearchFolders) == 0 {
		return errors.New("drive.search_folders must include at least one folder id")
	}
	if c.Drive.PageSize < 1 || c.Drive.PageSize > 1000 {
		return errors.New("drive.page_size must be between 1 and 1000")
	}
	if len(c.Drive.AudioExtensions)+len(c.Drive.TextExtensions)+len(c.Drive.OtherExtensions) == 0 {
		return errors.New("drive extension lists must not all be empty")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Engine {
	case EngineOpenAI, EngineWhisperX:
	default:
		return fmt.Errorf("transcription.engine must be %q or %q, got %q", EngineOpenAI, EngineWhisperX, c.Transcription.Engine)
	}
	if c.Transcription.Temperature < 0 || c.Transcription.Temperature > 1 {
		return errors.New("transcription.temperature must be between 0 and 1")
	}
	if c.Transcription.Language != "" && len(c.Transcription.Language) != 2 {
		return errors.New("transcription.language must be an ISO-639-1 code such as \"en\"")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.TitleMaxLength <= 0 {
		return errors.New("processing.title_max_length must be positive")
	}
	if ext := firstMissing(c.Drive.AudioExtensions, c.Processing.AudioExtensions); ext != "" {
		return fmt.Errorf("drive.audio_extensions includes %q but processing.audio_extensions does not; add it there or stop downloading it", ext)
	}
	if ext := firstMissing(c.Drive.TextExtensions, c.Processing.TextExtensions); ext != "" {
		return fmt.Errorf("drive.text_extensions includes %q but processing.text_extensions does not; add it there or stop downloading it", ext)
	}
	return nil
}

// firstMissing returns the first entry of want absent from have.
func firstMissing(want, have []string) string {
	for _, ext := range want {
		if !slices.Contains(have, ext) {
			return ext
		}
	}
	return ""
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database.path must be set when database.driver is sqlite")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set when database.driver is postgres (or set %s)", defaultPostgresDSNEnv)
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if c.Database.MaxConns <= 0 {
		return errors.New("database.max_conns must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.IntervalSeconds <= 0 {
		return errors.New("pipeline.interval_seconds must be positive")
	}
	if c.Pipeline.MaxItemFailures < -1 {
		return errors.New("pipeline.max_item_failures must be -1 (all items) or >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
