package embed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

// OpenAIEmbedder talks to any server implementing the OpenAI embeddings
// API: a local sentence-transformers server, Ollama, vLLM or OpenAI itself.
type OpenAIEmbedder struct {
	client      *openai.Client
	model       string
	batchSize   int
	concurrency int
	stats       *Stats
	logger      *slog.Logger

	mu  sync.Mutex // protects dim
	dim int
}

// NewOpenAI creates an OpenAI-compatible embedder. cfg.Endpoint is the API
// base URL including any version prefix.
func NewOpenAI(cfg Config) *OpenAIEmbedder {
	cfg.defaults()
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIEmbedder{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		stats:       cfg.Stats,
		logger:      cfg.Logger,
		dim:         cfg.Dimension,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch splits texts into requests of at most batchSize and runs up to
// concurrency of them at once. Each request fills its own slice of the
// result, so output order always matches input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.call(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch [%d:%d]: %w", start, end, err)
			}
			copy(result[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *OpenAIEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:          texts,
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if e.stats != nil {
		e.stats.Record(time.Since(start), len(texts))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrBackendUnavailable, len(resp.Data), len(texts))
	}

	// Reassemble in input order.
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(vecs) {
			vecs[d.Index] = d.Embedding
		}
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: missing embedding for input index %d", ErrBackendUnavailable, i)
		}
		if err := e.checkDim(len(v)); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

// checkDim records the dimension on first use and rejects vectors that
// disagree with it afterwards.
func (e *OpenAIEmbedder) checkDim(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dim == 0 {
		e.dim = n
		e.logger.Info("detected embedding dimension", "dimension", n, "model", e.model)
		return nil
	}
	if n != e.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, n, e.dim)
	}
	return nil
}

func (e *OpenAIEmbedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dim
}

func (e *OpenAIEmbedder) Model() string { return e.model }
