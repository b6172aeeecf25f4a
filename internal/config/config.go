package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/sectionrank/internal/embed"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Ranking
	TopKSections int
	MMRLambda    float64
	TopSentences int
	TopSnippets  int

	// Heading detection
	HeadingMaxWords  int
	HeadingSizeRatio float64

	// Embedding backend
	EmbedBackend     string
	EmbedEndpoint    string
	EmbedModel       string
	EmbedAPIKey      string
	EmbedBatchSize   int
	EmbedConcurrency int
	EmbedTimeout     time.Duration
	EmbedDimension   int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("SECTIONRANK_API_KEY"),

		TopKSections: envInt("TOP_K_SECTIONS", 5),
		MMRLambda:    envFloat("MMR_LAMBDA", 0.5),
		TopSentences: envInt("TOP_SENTENCES", 20),
		TopSnippets:  envInt("TOP_SNIPPETS", 5),

		HeadingMaxWords:  envInt("HEADING_MAX_WORDS", 15),
		HeadingSizeRatio: envFloat("HEADING_SIZE_RATIO", 1.20),

		EmbedBackend:     envOr("EMBED_BACKEND", embed.BackendOpenAI),
		EmbedEndpoint:    envOr("EMBED_ENDPOINT", "http://localhost:8080/v1"),
		EmbedModel:       envOr("EMBED_MODEL", "all-mpnet-base-v2"),
		EmbedAPIKey:      os.Getenv("EMBED_API_KEY"),
		EmbedBatchSize:   envInt("EMBED_BATCH_SIZE", 32),
		EmbedConcurrency: envInt("EMBED_CONCURRENCY", 4),
		EmbedTimeout:     envDuration("EMBED_TIMEOUT", 60*time.Second),
		EmbedDimension:   envInt("EMBED_DIMENSION", 0), // 0: detect (openai) or 768 (hashing)

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.TopKSections <= 0 {
		cfg.TopKSections = 5
	}
	if cfg.TopSentences <= 0 {
		cfg.TopSentences = 20
	}
	if cfg.TopSnippets <= 0 {
		cfg.TopSnippets = 5
	}
	if cfg.HeadingMaxWords <= 0 {
		cfg.HeadingMaxWords = 15
	}
	if cfg.HeadingSizeRatio <= 0 {
		cfg.HeadingSizeRatio = 1.20
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 4
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 60 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks settings shared by the CLI and the server.
func (c Config) Validate() error {
	if c.MMRLambda < 0 || c.MMRLambda > 1 {
		return fmt.Errorf("MMR_LAMBDA must be within [0, 1], got %v", c.MMRLambda)
	}
	switch c.EmbedBackend {
	case embed.BackendOpenAI:
		if c.EmbedEndpoint == "" {
			return fmt.Errorf("EMBED_ENDPOINT is required for the %s backend", c.EmbedBackend)
		}
	case embed.BackendHashing:
	default:
		return fmt.Errorf("EMBED_BACKEND must be %q or %q, got %q", embed.BackendOpenAI, embed.BackendHashing, c.EmbedBackend)
	}
	return nil
}

// ValidateServer additionally checks settings only the HTTP service needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("SECTIONRANK_API_KEY is required")
	}
	return nil
}

// Embed returns the embedding client settings.
func (c Config) Embed() embed.Config {
	return embed.Config{
		Backend:     c.EmbedBackend,
		Endpoint:    c.EmbedEndpoint,
		Model:       c.EmbedModel,
		APIKey:      c.EmbedAPIKey,
		Dimension:   c.EmbedDimension,
		BatchSize:   c.EmbedBatchSize,
		Concurrency: c.EmbedConcurrency,
		Timeout:     c.EmbedTimeout,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
