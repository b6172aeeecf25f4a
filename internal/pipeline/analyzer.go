package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/sectionrank/internal/config"
	"github.com/dgallion1/sectionrank/internal/doctree"
	"github.com/dgallion1/sectionrank/internal/embed"
	"github.com/dgallion1/sectionrank/internal/rank"
	"github.com/dgallion1/sectionrank/internal/segment"
)

var (
	ErrEmptyQuery      = errors.New("query is empty")
	ErrNoDocuments     = errors.New("no documents to analyze")
	ErrMissingDocument = errors.New("document not found")
)

// Params are the ranking knobs for one run. The zero Params means
// DefaultParams; otherwise non-positive counts fall back to their defaults
// and Lambda is used as given, so an explicit 0 ranks for diversity only.
type Params struct {
	TopK         int     // Sections selected in Stage 1
	Lambda       float64 // MMR relevance weight in [0, 1]
	TopSentences int     // Sentence pool size in Stage 2
	TopSnippets  int     // Snippets returned, one per page
	Heading      segment.Config
}

// DefaultParams returns the standard ranking parameters.
func DefaultParams() Params {
	return Params{
		TopK:         rank.DefaultTopK,
		Lambda:       rank.DefaultLambda,
		TopSentences: rank.DefaultTopSentences,
		TopSnippets:  rank.DefaultTopSnippets,
		Heading:      segment.DefaultConfig(),
	}
}

// ParamsFromConfig builds run parameters from service configuration.
func ParamsFromConfig(cfg config.Config) Params {
	return Params{
		TopK:         cfg.TopKSections,
		Lambda:       cfg.MMRLambda,
		TopSentences: cfg.TopSentences,
		TopSnippets:  cfg.TopSnippets,
		Heading: segment.Config{
			MaxWords:      cfg.HeadingMaxWords,
			SizeRatio:     cfg.HeadingSizeRatio,
			TerminalPunct: segment.DefaultTerminalPunct,
		},
	}
}

func (p Params) withDefaults() Params {
	if p == (Params{}) {
		return DefaultParams()
	}
	if p.TopK <= 0 {
		p.TopK = rank.DefaultTopK
	}
	if p.TopSentences <= 0 {
		p.TopSentences = rank.DefaultTopSentences
	}
	if p.TopSnippets <= 0 {
		p.TopSnippets = rank.DefaultTopSnippets
	}
	return p
}

// Request is one analysis run over already parsed documents.
type Request struct {
	Query     string
	Persona   string
	Documents []*doctree.Document
	Params    Params
}

// RunStats counts what each stage saw.
type RunStats struct {
	Pages      int `json:"pages"`
	Candidates int `json:"candidates"`
	Selected   int `json:"selected"`
	Sentences  int `json:"sentence_pages"`
	Snippets   int `json:"snippets"`
}

// Analyzer runs the two-stage ranking. It holds the embedder, which is
// shared read-only across runs.
type Analyzer struct {
	embedder embed.Embedder
	log      *slog.Logger
	now      func() time.Time
}

func NewAnalyzer(e embed.Embedder, log *slog.Logger) *Analyzer {
	return &Analyzer{embedder: e, log: log, now: time.Now}
}

// WithLogger returns a copy of the analyzer that logs to log.
func (a *Analyzer) WithLogger(log *slog.Logger) *Analyzer {
	c := *a
	c.log = log
	return &c
}

// Run segments every page, selects diverse sections by heading with MMR,
// then picks sentence snippets from the pages Stage 1 did not select.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Output, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if len(req.Documents) == 0 {
		return nil, ErrNoDocuments
	}
	p := req.Params.withDefaults()

	var sections []doctree.Section
	var stats RunStats
	for _, doc := range req.Documents {
		sections = append(sections, segment.Segment(doc, p.Heading)...)
		stats.Pages += len(doc.Pages)
	}

	var candidates []doctree.Section
	for _, s := range sections {
		if s.IsCandidate() {
			candidates = append(candidates, s)
		}
	}
	stats.Candidates = len(candidates)
	a.log.Info("segmented documents", "documents", len(req.Documents), "pages", stats.Pages, "candidates", stats.Candidates)

	qvec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Stage 1: diverse sections by heading.
	var picks []rank.Pick
	if len(candidates) > 0 {
		headings := make([]string, len(candidates))
		for i, c := range candidates {
			headings[i] = c.Heading
		}
		hvecs, err := a.embedder.EmbedBatch(ctx, headings)
		if err != nil {
			return nil, fmt.Errorf("embed headings: %w", err)
		}
		picks = rank.MMR(qvec, hvecs, p.TopK, p.Lambda)
	}

	selected := make(map[doctree.PageKey]bool, len(picks))
	extracted := make([]ExtractedSection, 0, len(picks))
	for _, pk := range picks {
		s := candidates[pk.Index]
		selected[s.Key()] = true
		extracted = append(extracted, ExtractedSection{
			Document:       s.Document,
			SectionTitle:   s.Heading,
			ImportanceRank: pk.Rank,
			PageNumber:     s.Page,
		})
	}
	stats.Selected = len(extracted)
	a.log.Info("selected sections", "selected", stats.Selected, "top_k", p.TopK, "lambda", p.Lambda)

	// Stage 2: sentence snippets from the remaining pages.
	refiner := &rank.Refiner{
		Embedder:     a.embedder,
		TopSentences: p.TopSentences,
		TopSnippets:  p.TopSnippets,
	}
	snippets, err := refiner.Refine(ctx, qvec, sections, selected)
	if err != nil {
		return nil, err
	}
	for _, s := range sections {
		if !selected[s.Key()] && s.Body != "" {
			stats.Sentences++
		}
	}

	analysis := make([]SubsectionAnalysis, 0, len(snippets))
	for _, sn := range snippets {
		analysis = append(analysis, SubsectionAnalysis{
			Document:       sn.Document,
			RefinedText:    sn.Text,
			PageNumber:     sn.Page,
			ImportanceRank: sn.Rank,
		})
	}
	stats.Snippets = len(analysis)
	a.log.Info("refined snippets", "pages", stats.Sentences, "snippets", stats.Snippets)

	names := make([]string, len(req.Documents))
	for i, d := range req.Documents {
		names[i] = d.Name
	}

	return &Output{
		Metadata: Metadata{
			InputDocuments:      names,
			Persona:             req.Persona,
			JobToBeDone:         query,
			ProcessingTimestamp: a.now().Format(time.RFC3339),
		},
		ExtractedSections:  extracted,
		SubsectionAnalysis: analysis,
		Stats:              stats,
	}, nil
}
