// Package rank selects sections and sentences by semantic relevance to a
// query.
package rank

import (
	"math"

	"github.com/dgallion1/sectionrank/internal/embed"
)

// Defaults for Stage 1 selection.
const (
	DefaultTopK   = 5
	DefaultLambda = 0.5
)

// Pick is one MMR selection.
type Pick struct {
	Index     int     // Index into the candidate slice
	Rank      int     // 1-based selection order
	Relevance float64 // Cosine similarity to the query
	Score     float64 // MMR score at the moment of selection
}

// MMR greedily selects up to k candidates by maximal marginal relevance:
//
//	score(c) = lambda*sim(c, q) - (1-lambda)*max sim(c, s) over selected s
//
// The redundancy term is 0 for the first pick. Ties go to the earlier
// candidate. Picks are returned in selection order.
func MMR(query []float32, candidates [][]float32, k int, lambda float64) []Pick {
	n := len(candidates)
	if k <= 0 || n == 0 {
		return nil
	}
	k = min(k, n)

	relevance := make([]float64, n)
	for i, c := range candidates {
		relevance[i] = embed.Cosine(c, query)
	}

	// maxSim[i] is the highest similarity of candidate i to anything
	// selected so far.
	maxSim := make([]float64, n)
	for i := range maxSim {
		maxSim[i] = math.Inf(-1)
	}
	chosen := make([]bool, n)
	picks := make([]Pick, 0, k)

	for len(picks) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if chosen[i] {
				continue
			}
			redundancy := 0.0
			if len(picks) > 0 {
				redundancy = maxSim[i]
			}
			score := lambda*relevance[i] - (1-lambda)*redundancy
			if best < 0 || score > bestScore {
				best, bestScore = i, score
			}
		}

		chosen[best] = true
		picks = append(picks, Pick{
			Index:     best,
			Rank:      len(picks) + 1,
			Relevance: relevance[best],
			Score:     bestScore,
		})

		for i, c := range candidates {
			if chosen[i] {
				continue
			}
			if s := embed.Cosine(c, candidates[best]); s > maxSim[i] {
				maxSim[i] = s
			}
		}
	}
	return picks
}
