// Package config provides application configuration management.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.kura/config.yaml or ./config.yaml)
//  3. Default values
//
// Categories:
//   - AI: provider, generation model, cleansing model, embedder
//   - Storage: PostgreSQL connection (see storage.go)
//   - Retrieval: namespace, top-K, chunk size, embedding dimension
//   - Crawl: site root, include paths, page limit, inter-page delay
//
// Validation is fail-fast at load time with sentinel errors so callers can
// use errors.Is(). The embedding dimension is checked against the store
// schema here: an ingestion/query dimensionality mismatch is a startup
// error, never a runtime surprise.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbeddingDimension indicates the configured embedder output
	// does not match the vector schema dimension.
	ErrInvalidEmbeddingDimension = errors.New("incompatible embedding dimension")

	// ErrInvalidTopK indicates the retrieval top-K is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidNamespace indicates the vector namespace is empty.
	ErrInvalidNamespace = errors.New("invalid namespace")

	// ErrInvalidCrawlRoot indicates the crawl base URL is missing or malformed.
	ErrInvalidCrawlRoot = errors.New("invalid crawl root URL")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
)

const (
	// VectorDimension is the embedding dimensionality used at both
	// ingestion and query time. The records table schema declares
	// vector(768); embedders must be configured to emit exactly this.
	VectorDimension = 768

	// DefaultEmbedderModel is the default Gemini embedder. It supports
	// output truncation to 768 dimensions via OutputDimensionality.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultMaxChunkChars bounds the length of a stored content segment.
	DefaultMaxChunkChars = 1200

	// DefaultTopK is the default number of matches retrieved per query.
	DefaultTopK = 5
)

// CrawlConfig controls the web ingestion source.
type CrawlConfig struct {
	RootURL      string   `mapstructure:"root_url" json:"root_url"`
	IncludePaths []string `mapstructure:"include_paths" json:"include_paths"`
	PageLimit    int      `mapstructure:"page_limit" json:"page_limit"`
	DelayMS      int      `mapstructure:"delay_ms" json:"delay_ms"`
}

// TracingConfig controls optional OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider" json:"provider"`             // "googleai" (default) or "openai"
	ModelName     string  `mapstructure:"model_name" json:"model_name"`         // generation model for answering
	CleanseModel  string  `mapstructure:"cleanse_model" json:"cleanse_model"`   // rewrite model for content cleansing ("" = reuse ModelName)
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"` // embedding model, shared by ingestion and query
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Retrieval configuration
	EmbeddingDimension int    `mapstructure:"embedding_dimension" json:"embedding_dimension"`
	Namespace          string `mapstructure:"namespace" json:"namespace"`
	TopK               int    `mapstructure:"top_k" json:"top_k"`
	MaxChunkChars      int    `mapstructure:"max_chunk_chars" json:"max_chunk_chars"`

	// Ingestion configuration
	Crawl CrawlConfig `mapstructure:"crawl" json:"crawl"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"` // SENSITIVE: never serialized
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Observability
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".kura")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGoogleAI)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("cleanse_model", "")
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 500)

	v.SetDefault("embedding_dimension", VectorDimension)
	v.SetDefault("namespace", "default")
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("max_chunk_chars", DefaultMaxChunkChars)

	v.SetDefault("crawl.page_limit", 20)
	v.SetDefault("crawl.delay_ms", 1000)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "kura")
	v.SetDefault("postgres_password", "kura_dev_password")
	v.SetDefault("postgres_db_name", "kura")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("server_addr", "127.0.0.1:3500")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.agent_host", "localhost:4318")
	v.SetDefault("tracing.service_name", "kura")
	v.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds runtime override environment variables.
//
// Provider API keys (GEMINI_API_KEY, OPENAI_API_KEY) are read directly by
// the Genkit plugins, not via Viper; Validate checks their presence for the
// selected provider.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "KURA_PROVIDER")
	mustBind("model_name", "KURA_MODEL_NAME")
	mustBind("cleanse_model", "KURA_CLEANSE_MODEL")
	mustBind("embedder_model", "KURA_EMBEDDER_MODEL")
	mustBind("namespace", "KURA_NAMESPACE")
	mustBind("server_addr", "KURA_SERVER_ADDR")
	mustBind("crawl.root_url", "KURA_CRAWL_ROOT_URL")
	mustBind("tracing.enabled", "KURA_TRACING_ENABLED")
	mustBind("tracing.agent_host", "KURA_TRACING_AGENT_HOST")
}

// CleanseModelName returns the model used for content cleansing,
// falling back to the main generation model when unset.
func (c *Config) CleanseModelName() string {
	if c.CleanseModel != "" {
		return c.CleanseModel
	}
	return c.ModelName
}
