// Package embed turns text into fixed-length vectors. The pipeline treats
// the model as an opaque function; this package owns the backend client,
// batching, and latency tracking.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrBackendUnavailable means the embedding backend could not be reached
	// or returned an error. Runs fail on it; there is no fallback.
	ErrBackendUnavailable = errors.New("embedding backend unavailable")

	// ErrDimensionMismatch means the backend returned vectors of an
	// unexpected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Backend names accepted by New.
const (
	BackendOpenAI  = "openai"
	BackendHashing = "hashing"
)

// Embedder converts text to vectors.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension, or 0 if not yet known.
	Dimension() int

	// Model returns the model name.
	Model() string
}

// Config configures an Embedder.
type Config struct {
	Backend     string        // "openai" (any OpenAI-compatible server) or "hashing"
	Endpoint    string        // Base URL, e.g. "http://localhost:8080/v1"
	Model       string        // Model name sent with each request
	APIKey      string        // Optional bearer token
	Dimension   int           // Expected dimension; 0 = accept what the server returns
	BatchSize   int           // Max texts per request. Default: 32
	Concurrency int           // Max in-flight requests per EmbedBatch. Default: 4
	Timeout     time.Duration // Per request. Default: 60s

	Stats  *Stats       // Optional latency recorder
	Logger *slog.Logger // Defaults to slog.Default()
}

func (c *Config) defaults() {
	if c.Backend == "" {
		c.Backend = BackendOpenAI
	}
	if c.Model == "" {
		c.Model = "all-mpnet-base-v2"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates an Embedder for the configured backend.
func New(cfg Config) (Embedder, error) {
	cfg.defaults()
	switch cfg.Backend {
	case BackendOpenAI:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("%w: no endpoint configured", ErrBackendUnavailable)
		}
		return NewOpenAI(cfg), nil
	case BackendHashing:
		return NewHashing(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
}

// Probe embeds a short text to confirm the backend is reachable and
// produces vectors. It is meant to run once at startup.
func Probe(ctx context.Context, e Embedder) error {
	vec, err := e.Embed(ctx, "probe")
	if err != nil {
		if errors.Is(err, ErrBackendUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector from model %s", ErrBackendUnavailable, e.Model())
	}
	if d := e.Dimension(); d > 0 && len(vec) != d {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), d)
	}
	return nil
}
