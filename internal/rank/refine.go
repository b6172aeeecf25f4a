package rank

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/sectionrank/internal/doctree"
	"github.com/dgallion1/sectionrank/internal/embed"
)

// Defaults for Stage 2 refinement.
const (
	DefaultTopSentences = 20
	DefaultTopSnippets  = 5
)

// Sentence is one sentence of a page, with its position in the page's
// sentence sequence.
type Sentence struct {
	Page  doctree.PageKey
	Index int
	Text  string
}

// Snippet is a top sentence with its neighbors on the same page.
type Snippet struct {
	Document string
	Page     int
	Text     string  // Up to three sentences joined by spaces
	Rank     int     // 1-based
	Score    float64 // Similarity of the center sentence to the query
}

// Refiner picks sentence-level snippets from pages that Stage 1 did not
// select.
type Refiner struct {
	Embedder     embed.Embedder
	TopSentences int // Size of the ranked sentence pool (M)
	TopSnippets  int // Max snippets, one per page (N)
}

// Refine splits every non-excluded page into sentences, ranks them by
// similarity to the query, and keeps the best sentence of each page from
// the top TopSentences until TopSnippets pages are covered. Each snippet
// is the sentence plus its predecessor and successor, clipped to the page.
func (r *Refiner) Refine(ctx context.Context, query []float32, sections []doctree.Section, exclude map[doctree.PageKey]bool) ([]Snippet, error) {
	topM := r.TopSentences
	if topM <= 0 {
		topM = DefaultTopSentences
	}
	topN := r.TopSnippets
	if topN <= 0 {
		topN = DefaultTopSnippets
	}

	pages := make(map[doctree.PageKey][]string)
	var pool []Sentence
	for _, s := range sections {
		key := s.Key()
		if exclude[key] {
			continue
		}
		if _, seen := pages[key]; seen {
			continue
		}
		sentences := SplitSentences(s.Body)
		if len(sentences) == 0 {
			continue
		}
		pages[key] = sentences
		for i, text := range sentences {
			pool = append(pool, Sentence{Page: key, Index: i, Text: text})
		}
	}
	if len(pool) == 0 {
		return nil, nil
	}

	texts := make([]string, len(pool))
	for i, s := range pool {
		texts[i] = s.Text
	}
	vecs, err := r.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed sentences: %w", err)
	}

	scores := make([]float64, len(pool))
	order := make([]int, len(pool))
	for i := range pool {
		scores[i] = embed.Cosine(vecs[i], query)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if len(order) > topM {
		order = order[:topM]
	}

	used := make(map[doctree.PageKey]bool)
	var snippets []Snippet
	for _, idx := range order {
		if len(snippets) >= topN {
			break
		}
		s := pool[idx]
		if used[s.Page] {
			continue
		}
		used[s.Page] = true

		snippets = append(snippets, Snippet{
			Document: s.Page.Document,
			Page:     s.Page.Page,
			Text:     window(pages[s.Page], s.Index),
			Rank:     len(snippets) + 1,
			Score:    scores[idx],
		})
	}
	return snippets, nil
}

// window joins sentence i with its immediate neighbors that exist.
func window(sentences []string, i int) string {
	lo := max(0, i-1)
	hi := min(len(sentences), i+2)
	return strings.Join(sentences[lo:hi], " ")
}
