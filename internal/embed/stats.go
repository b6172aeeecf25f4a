package embed

import (
	"math"
	"slices"
	"sort"
	"sync"
	"time"
)

// batchSample is one embeddings request: when it finished, how long it
// took and how many texts it carried.
type batchSample struct {
	at      time.Time
	latency time.Duration
	texts   int
}

// LatencyMs summarizes request latencies in milliseconds. Percentiles use
// the nearest-rank method.
type LatencyMs struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
}

// StatsSnapshot aggregates the embedding requests inside the window.
type StatsSnapshot struct {
	Window        string    `json:"window"`
	Requests      int       `json:"requests"`
	Texts         int       `json:"texts"`
	MeanBatchSize float64   `json:"mean_batch_size"`
	TextsPerSec   float64   `json:"texts_per_sec"` // Texts over time spent waiting on the backend
	Latency       LatencyMs `json:"latency_ms"`
}

// Stats records embedding requests over a sliding time window.
type Stats struct {
	mu      sync.Mutex
	window  time.Duration
	batches []batchSample // Ordered by completion time
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window}
}

// Record adds one request of texts inputs that took latency.
func (s *Stats) Record(latency time.Duration, texts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.expire(now)
	s.batches = append(s.batches, batchSample{
		at:      now,
		latency: max(latency, 0),
		texts:   max(texts, 0),
	})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire(time.Now())

	snap := StatsSnapshot{Window: s.window.String(), Requests: len(s.batches)}
	if snap.Requests == 0 {
		return snap
	}

	ms := make([]float64, len(s.batches))
	var busy time.Duration
	for i, b := range s.batches {
		ms[i] = float64(b.latency) / float64(time.Millisecond)
		busy += b.latency
		snap.Texts += b.texts
	}
	slices.Sort(ms)

	snap.MeanBatchSize = float64(snap.Texts) / float64(snap.Requests)
	if busy > 0 {
		snap.TextsPerSec = float64(snap.Texts) / busy.Seconds()
	}
	snap.Latency = LatencyMs{
		Min:  ms[0],
		Max:  ms[len(ms)-1],
		Mean: float64(busy) / float64(time.Millisecond) / float64(len(ms)),
		P50:  nearestRank(ms, 50),
		P95:  nearestRank(ms, 95),
		P99:  nearestRank(ms, 99),
	}
	return snap
}

// expire drops samples older than the window. Samples are appended in
// time order, so the expired ones form a prefix.
func (s *Stats) expire(now time.Time) {
	cutoff := now.Add(-s.window)
	n := sort.Search(len(s.batches), func(i int) bool {
		return !s.batches[i].at.Before(cutoff)
	})
	if n > 0 {
		s.batches = slices.Delete(s.batches, 0, n)
	}
}

// nearestRank returns the smallest value with at least pct percent of the
// sorted values at or below it.
func nearestRank(sorted []float64, pct float64) float64 {
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	rank = min(max(rank, 1), len(sorted))
	return sorted[rank-1]
}
