// Package config loads application configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full application configuration.
type Config struct {
	DB        DBConfig
	Server    ServerConfig
	S3        S3Config
	Ollama    OllamaConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	NewsAPI   NewsAPIConfig
	Feeds     FeedsConfig
	Cluster   ClusterConfig
	Output    OutputConfig
	Translate TranslateConfig
	Worker    WorkerConfig
	Diag      DiagConfig
	LogLevel  string
}

// DBConfig holds PostgreSQL connection parameters. The run archive is
// disabled when Host is empty.
type DBConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	DBName  string
	SSLMode string
}

// Enabled reports whether a database is configured.
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Pass +
		"@" + c.Host + ":" + strconv.Itoa(c.Port) +
		"/" + c.DBName + "?sslmode=" + c.SSLMode
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port string
	Host string
}

// Addr returns the full listen address (host:port).
func (c ServerConfig) Addr() string {
	return c.Host + c.Port
}

// S3Config holds S3-compatible object storage parameters for run snapshots.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

// OllamaConfig holds the Ollama LLM server parameters.
type OllamaConfig struct {
	Host  string
	Model string
}

// OpenAIConfig configures the OpenAI-compatible chat completion backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// NewsAPIConfig configures the optional headline API source.
type NewsAPIConfig struct {
	APIKey   string
	BaseURL  string
	Query    string
	PageSize int
	Lookback time.Duration
}

// FeedsConfig controls feed ingestion.
type FeedsConfig struct {
	File           string
	Timeout        time.Duration
	UserAgent      string
	OGImageLookups int
	List           []Feed
}

// ClusterConfig holds the event clustering thresholds.
type ClusterConfig struct {
	Window             time.Duration
	SameFamilyJaccard  float64
	CrossFamilyJaccard float64
}

// OutputConfig bounds the assembled story list.
type OutputConfig struct {
	SummaryWords int
	MaxStories   int
}

// TranslateConfig selects the translation backend and its limits.
type TranslateConfig struct {
	// Backend is one of "openai", "gemini" or "ollama".
	Backend  string
	Always   bool
	BatchCap int
	Timeout  time.Duration
}

// WorkerConfig configures the snapshot worker.
type WorkerConfig struct {
	Schedule  string
	Translate bool
}

// DiagConfig guards the diagnostic endpoints.
type DiagConfig struct {
	// TokenHash is a bcrypt hash of the bearer token. Empty leaves the
	// endpoints open.
	TokenHash string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		DB: DBConfig{
			Host:    envOr("DB_HOST", ""),
			Port:    envOrInt("DB_PORT", 5432),
			User:    envOr("DB_USER", "shift"),
			Pass:    envOr("DB_PASS", "shift"),
			DBName:  envOr("DB_NAME", "shift"),
			SSLMode: envOr("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Port: envOr("SERVER_PORT", ":8080"),
			Host: envOr("SERVER_HOST", ""),
		},
		S3: S3Config{
			Endpoint:  envOr("S3_ENDPOINT", ""),
			Bucket:    envOr("S3_BUCKET", "shift-snapshots"),
			AccessKey: envOr("S3_ACCESS_KEY", ""),
			SecretKey: envOr("S3_SECRET_KEY", ""),
			Region:    envOr("S3_REGION", "me-central-1"),
		},
		Ollama: OllamaConfig{
			Host:  envOr("OLLAMA_HOST", "http://localhost:11434"),
			Model: envOr("OLLAMA_MODEL", "llama3"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  envOr("OPENAI_API_KEY", ""),
			BaseURL: envOr("OPENAI_BASE_URL", ""),
			Model:   envOr("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Gemini: GeminiConfig{
			APIKey: envOr("GEMINI_API_KEY", ""),
			Model:  envOr("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		NewsAPI: NewsAPIConfig{
			APIKey:   envOr("NEWS_API_KEY", ""),
			BaseURL:  envOr("NEWS_API_URL", "https://newsapi.org/v2/everything"),
			Query:    envOr("NEWS_API_QUERY", `UAE OR Dubai OR "Abu Dhabi"`),
			PageSize: envOrInt("NEWS_API_PAGE_SIZE", 30),
			Lookback: envOrDuration("NEWS_API_LOOKBACK", 72*time.Hour),
		},
		Feeds: FeedsConfig{
			File:           envOr("FEEDS_FILE", "configs/feeds.yaml"),
			Timeout:        envOrDuration("FEED_TIMEOUT", 15*time.Second),
			UserAgent:      envOr("FEED_USER_AGENT", "ShiftNewsBot/1.0 (+https://shift.news)"),
			OGImageLookups: envOrInt("OG_IMAGE_LOOKUPS", 0),
		},
		Cluster: ClusterConfig{
			Window:             envOrDuration("CLUSTER_WINDOW", 12*time.Hour),
			SameFamilyJaccard:  envOrFloat("CLUSTER_SAME_FAMILY_JACCARD", 0.35),
			CrossFamilyJaccard: envOrFloat("CLUSTER_CROSS_FAMILY_JACCARD", 0.60),
		},
		Output: OutputConfig{
			SummaryWords: envOrInt("SUMMARY_WORDS", 70),
			MaxStories:   envOrInt("MAX_STORIES", 150),
		},
		Translate: TranslateConfig{
			Backend:  strings.ToLower(envOr("TRANSLATE_BACKEND", "openai")),
			Always:   envOrBool("TRANSLATE_ALWAYS", false),
			BatchCap: envOrInt("TRANSLATE_BATCH_CAP", 20),
			Timeout:  envOrDuration("TRANSLATE_TIMEOUT", 45*time.Second),
		},
		Worker: WorkerConfig{
			Schedule:  envOr("SNAPSHOT_SCHEDULE", "*/30 * * * *"),
			Translate: envOrBool("SNAPSHOT_TRANSLATE", true),
		},
		Diag: DiagConfig{
			TokenHash: envOr("DIAG_TOKEN_HASH", ""),
		},
		LogLevel: strings.ToLower(envOr("LOG_LEVEL", "info")),
	}

	feeds, err := LoadFeeds(cfg.Feeds.File)
	if err != nil {
		slog.Warn("feeds file not loaded, using built-in feeds", "file", cfg.Feeds.File, "err", err)
		feeds = DefaultFeeds()
	}
	cfg.Feeds.List = feeds

	return cfg
}

// SlogLevel maps LogLevel onto a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// TranslatorKey returns the credential of the selected translation backend.
// Ollama needs none and reports its host instead.
func (c Config) TranslatorKey() string {
	switch c.Translate.Backend {
	case "gemini":
		return c.Gemini.APIKey
	case "ollama":
		return c.Ollama.Host
	}
	return c.OpenAI.APIKey
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envOrBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
