package config

const (
	defaultConfigPath            = "~/.config/driveingest/config.toml"
	defaultDownloadDir           = "~/.local/share/driveingest/downloads"
	defaultProcessedDir          = "~/.local/share/driveingest/processed"
	defaultStateDir              = "~/.local/state/driveingest"
	defaultLogDir                = "~/.local/state/driveingest/logs"
	defaultCredentialsFile       = "~/.config/driveingest/client_secret.json"
	defaultTokenFile             = "~/.config/driveingest/token.json"
	defaultSearchFolder          = "root"
	defaultDrivePageSize         = 1000
	defaultDriveRequestTimeout   = 120
	defaultEngine                = EngineOpenAI
	defaultTranscriptionModel    = "gpt-4o-transcribe"
	defaultDetectModel           = "gpt-4o-mini-transcribe"
	defaultProbeSeconds          = 25
	minProbeSeconds              = 5
	defaultWhisperXModel         = "large-v3"
	defaultFFmpegBinary          = "ffmpeg"
	defaultTranscriptionTimeout  = 300
	defaultTitleMaxLength        = 255
	defaultDatabaseFile          = "driveingest.db"
	defaultMaxConns              = 4
	defaultIntervalSeconds       = 30
	defaultMaxItemFailures       = -1
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultNotifyRequestTimeout  = 10
	defaultPostgresDSNEnv        = "DATABASE_URL"
	defaultTranscriptionKeyEnv   = "OPENAI_API_KEY"
	defaultTranscriptionURLEnv   = "OPENAI_BASE_URL"
	defaultNotificationTopicEnv  = "NTFY_TOPIC"
	defaultDriveCredentialsEnv   = "CLIENT_SECRET_FILE"
	defaultDriveTokenEnv         = "TOKEN_FILE"
	defaultDriveSearchFoldersEnv = "SEARCH_FOLDERS"
)

// Supported transcription engines.
const (
	EngineOpenAI   = "openai"
	EngineWhisperX = "whisperx"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	defaultDriveAudioExtensions      = []string{".mp3", ".m4a", ".wav", ".ogg", ".flac"}
	defaultDriveTextExtensions       = []string{".txt", ".docx", ".pdf", ".html", ".md"}
	defaultProcessingAudioExtensions = []string{".mp3", ".m4a", ".wav", ".ogg", ".flac"}
	defaultProcessingTextExtensions  = []string{".txt", ".docx", ".pdf", ".html", ".md"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir:  defaultDownloadDir,
			ProcessedDir: defaultProcessedDir,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
		},
		Drive: Drive{
			CredentialsFile:  defaultCredentialsFile,
			TokenFile:        defaultTokenFile,
			SearchFolders:    []string{defaultSearchFolder},
			AudioExtensions:  append([]string(nil), defaultDriveAudioExtensions...),
			TextExtensions:   append([]string(nil), defaultDriveTextExtensions...),
			OtherExtensions:  []string{},
			PageSize:         defaultDrivePageSize,
			ExportGoogleDocs: true,
			RequestTimeout:   defaultDriveRequestTimeout,
		},
		Transcription: Transcription{
			Engine:         defaultEngine,
			Model:          defaultTranscriptionModel,
			DetectModel:    defaultDetectModel,
			ProbeSeconds:   defaultProbeSeconds,
			WhisperXModel:  defaultWhisperXModel,
			FFmpegBinary:   defaultFFmpegBinary,
			RequestTimeout: defaultTranscriptionTimeout,
		},
		Processing: Processing{
			AudioExtensions: append([]string(nil), defaultProcessingAudioExtensions...),
			TextExtensions:  append([]string(nil), defaultProcessingTextExtensions...),
			TitleMaxLength:  defaultTitleMaxLength,
		},
		Database: Database{
			Driver:   DriverSQLite,
			MaxConns: defaultMaxConns,
		},
		Pipeline: Pipeline{
			IntervalSeconds: defaultIntervalSeconds,
			MaxItemFailures: defaultMaxItemFailures,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			OnFailure:      true,
			OnPartial:      true,
		},
	}
}
