package config

import (
	"time"

	"github.com/spf13/viper"
)

// Source names an import source. It is also the key importer options are
// stored under.
type Source string

const (
	SourceAnkiApp Source = "ankiapp" // Local AnkiApp data folder, database or XML export
	SourceAlgoApp Source = "algoapp" // AnkiApp online account
	SourceNoji    Source = "noji"
	SourceAnkiPro Source = "ankipro"
)

// Sources lists every supported source.
var Sources = []Source{SourceAnkiApp, SourceAlgoApp, SourceNoji, SourceAnkiPro}

func (s Source) Valid() bool {
	for _, known := range Sources {
		if s == known {
			return true
		}
	}
	return false
}

type (
	Config struct {
		HTTP
		Global
		Log
		Collection
		Importers
		AnkiApp
		AlgoApp
		Noji
		Tasks
		Audit
		Secrets
	}

	HTTP struct {
		Port          int32
		Host          string
		APIToken      string // Required as a bearer token when set
		MaxUploadSize int64  // Bytes accepted for an uploaded AnkiApp file
		UploadDir     string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Log struct {
		Level   string
		File    string
		Console bool
	}
	Collection struct {
		Path     string
		MediaDir string
	}
	Importers struct {
		RemoteMedia      bool // Fetch AnkiApp media missing locally from the blob server
		DownloadMedia    bool // Download Noji/AnkiPro attachments
		SanitizeHTML     bool
		PreferDeckConfig bool // Consult AnkiApp deck configuration before layouts
		RequestTimeout   time.Duration
		ProgressInterval time.Duration
		UserAgent        string
	}
	AnkiApp struct {
		DataDir string
		BlobURL string
	}
	AlgoApp struct {
		APIURL        string
		ClientID      string
		ClientToken   string
		ClientVersion string
	}
	Noji struct {
		APIURL       string
		Token        string
		AnkiProToken string
	}
	Tasks struct {
		Enabled           bool
		DBPath            string
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration

		// MaintenanceSchedule is the cron expression of the pruning pass.
		// Empty disables it.
		MaintenanceSchedule string
		RunRetentionDays    int
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Secrets struct {
		// Key is a base64 AES-256 key. When set, saved credentials are
		// encrypted in the database.
		Key string
	}
)

// ImporterOptions is the configuration handed to one importer run. It is a
// value copy, so changes made while an import runs do not affect it.
type ImporterOptions struct {
	Source           Source
	RemoteMedia      bool
	DownloadMedia    bool
	SanitizeHTML     bool
	PreferDeckConfig bool
	RequestTimeout   time.Duration
	ProgressInterval time.Duration
	UserAgent        string

	// Endpoints
	BlobURL string
	APIURL  string

	// Credentials
	ClientID      string
	ClientToken   string
	ClientVersion string
	Token         string
}

// ImporterOptions builds the snapshot for source from the loaded
// configuration alone. settingsstore layers persisted choices on top.
func (c *Config) ImporterOptions(source Source) ImporterOptions {
	opts := ImporterOptions{
		Source:           source,
		RemoteMedia:      c.Importers.RemoteMedia,
		DownloadMedia:    c.Importers.DownloadMedia,
		SanitizeHTML:     c.Importers.SanitizeHTML,
		PreferDeckConfig: c.Importers.PreferDeckConfig,
		RequestTimeout:   c.Importers.RequestTimeout,
		ProgressInterval: c.Importers.ProgressInterval,
		UserAgent:        c.Importers.UserAgent,
		BlobURL:          c.AnkiApp.BlobURL,
	}
	switch source {
	case SourceAlgoApp:
		opts.APIURL = c.AlgoApp.APIURL
		opts.ClientID = c.AlgoApp.ClientID
		opts.ClientToken = c.AlgoApp.ClientToken
		opts.ClientVersion = c.AlgoApp.ClientVersion
	case SourceNoji:
		opts.APIURL = c.Noji.APIURL
		opts.Token = c.Noji.Token
	case SourceAnkiPro:
		opts.APIURL = c.Noji.APIURL
		opts.Token = c.Noji.AnkiProToken
	}
	return opts
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8199)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("api_token", "")
	v.SetDefault("max_upload_size", 512<<20)
	v.SetDefault("upload_dir", "")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_console", true)

	v.SetDefault("collection_path", DefaultCollectionPath)
	v.SetDefault("media_dir", DefaultMediaDir)

	// Importer defaults
	v.SetDefault("remote_media", true)
	v.SetDefault("download_media", true)
	v.SetDefault("sanitize_html", false)
	v.SetDefault("prefer_deck_config", false)
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("progress_interval", "100ms")
	v.SetDefault("user_agent", "")

	v.SetDefault("ankiapp_data_dir", "")
	v.SetDefault("ankiapp_blob_url", DefaultAnkiAppBlobURL)
	v.SetDefault("algoapp_api_url", DefaultAlgoAppAPIURL)
	v.SetDefault("noji_api_url", DefaultNojiAPIURL)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_db_path", DefaultTasksDBPath)
	v.SetDefault("tasks_release_after", "1h")
	v.SetDefault("tasks_cleanup_interval", "1h")
	v.SetDefault("tasks_retention_duration", "24h")
	v.SetDefault("maintenance_schedule", "0 3 * * *")
	v.SetDefault("run_retention_days", 90)

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("secrets_key", "")

	if path := v.GetString("COPYCAT_CONFIG"); path != "" {
		v.SetConfigFile(path)
		// Env and defaults still apply when the file cannot be read.
		_ = v.ReadInConfig()
	}

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),

			APIToken:      v.GetString("API_TOKEN"),
			MaxUploadSize: v.GetInt64("MAX_UPLOAD_SIZE"),
			UploadDir:     v.GetString("UPLOAD_DIR"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Log: Log{
			Level:   v.GetString("LOG_LEVEL"),
			File:    v.GetString("LOG_FILE"),
			Console: v.GetBool("LOG_CONSOLE"),
		},
		Collection: Collection{
			Path:     v.GetString("COLLECTION_PATH"),
			MediaDir: v.GetString("MEDIA_DIR"),
		},
		Importers: Importers{
			RemoteMedia:      v.GetBool("REMOTE_MEDIA"),
			DownloadMedia:    v.GetBool("DOWNLOAD_MEDIA"),
			SanitizeHTML:     v.GetBool("SANITIZE_HTML"),
			PreferDeckConfig: v.GetBool("PREFER_DECK_CONFIG"),
			RequestTimeout:   v.GetDuration("REQUEST_TIMEOUT"),
			ProgressInterval: v.GetDuration("PROGRESS_INTERVAL"),
			UserAgent:        v.GetString("USER_AGENT"),
		},
		AnkiApp: AnkiApp{
			DataDir: v.GetString("ANKIAPP_DATA_DIR"),
			BlobURL: v.GetString("ANKIAPP_BLOB_URL"),
		},
		AlgoApp: AlgoApp{
			APIURL:        v.GetString("ALGOAPP_API_URL"),
			ClientID:      v.GetString("ALGOAPP_CLIENT_ID"),
			ClientToken:   v.GetString("ALGOAPP_CLIENT_TOKEN"),
			ClientVersion: v.GetString("ALGOAPP_CLIENT_VERSION"),
		},
		Noji: Noji{
			APIURL:       v.GetString("NOJI_API_URL"),
			Token:        v.GetString("NOJI_TOKEN"),
			AnkiProToken: v.GetString("ANKIPRO_TOKEN"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			DBPath:            v.GetString("TASKS_DB_PATH"),
			ReleaseAfter:      v.GetDuration("TASKS_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASKS_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASKS_RETENTION_DURATION"),

			MaintenanceSchedule: v.GetString("MAINTENANCE_SCHEDULE"),
			RunRetentionDays:    v.GetInt("RUN_RETENTION_DAYS"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Secrets: Secrets{
			Key: v.GetString("SECRETS_KEY"),
		},
	}
}
