package config

import (
	"fmt"
	"net/url"
	"os"
)

// validSSLModes are the PostgreSQL SSL modes accepted by pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate performs fail-fast validation of the whole configuration.
// Returns sentinel errors wrapped with context so callers can errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidProvider, c.Provider, ProviderGoogleAI, ProviderOpenAI)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidEmbedderModel)
	}

	// The store schema is vector(VectorDimension). Ingestion and query must
	// use the same dimensionality; anything else corrupts similarity search.
	if c.EmbeddingDimension != VectorDimension {
		return fmt.Errorf("%w: configured %d, store schema requires %d",
			ErrInvalidEmbeddingDimension, c.EmbeddingDimension, VectorDimension)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (expected 0.0-2.0)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: %d (expected 1-65536)", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("%w: %d (expected 1-100)", ErrInvalidTopK, c.TopK)
	}
	if c.MaxChunkChars < 100 || c.MaxChunkChars > 10000 {
		return fmt.Errorf("%w: %d (expected 100-10000)", ErrInvalidChunkSize, c.MaxChunkChars)
	}
	if c.Namespace == "" {
		return fmt.Errorf("%w: namespace is empty", ErrInvalidNamespace)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (expected 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// ValidateIngest checks the additional settings required by the ingestion
// pipeline. Serve-only deployments may leave the crawl root unset.
func (c *Config) ValidateIngest() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Crawl.RootURL == "" {
		return fmt.Errorf("%w: crawl root URL is empty", ErrInvalidCrawlRoot)
	}
	u, err := url.Parse(c.Crawl.RootURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidCrawlRoot, c.Crawl.RootURL)
	}
	if c.Crawl.PageLimit < 1 {
		return fmt.Errorf("%w: page limit %d (expected >= 1)", ErrInvalidCrawlRoot, c.Crawl.PageLimit)
	}

	return nil
}
