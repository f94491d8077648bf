package pipeline

import (
	"slices"
	"sync"
	"time"
)

// run is one recorded analysis.
type run struct {
	at        time.Time
	ms        int64
	documents int
}

// StatsSnapshot aggregates the analysis runs inside the window.
type StatsSnapshot struct {
	Count         int     `json:"count"`
	Documents     int     `json:"documents"`
	MinMs         int64   `json:"min_ms"`
	MaxMs         int64   `json:"max_ms"`
	AvgMs         float64 `json:"avg_ms"`
	MsPerDocument float64 `json:"ms_per_document"`
	P50Ms         float64 `json:"p50_ms"`
	P95Ms         float64 `json:"p95_ms"`
	P99Ms         float64 `json:"p99_ms"`
}

// LatencyStats keeps analysis durations for a rolling window.
type LatencyStats struct {
	mu     sync.Mutex
	runs   []run
	window time.Duration
	now    func() time.Time
}

func NewLatencyStats(window time.Duration) *LatencyStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LatencyStats{
		runs:   make([]run, 0, 256),
		window: window,
		now:    time.Now,
	}
}

// Record adds one run that analyzed the given number of documents.
// Negative durations count as zero.
func (s *LatencyStats) Record(d time.Duration, documents int) {
	ms := max(d.Milliseconds(), 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.expire(now)
	s.runs = append(s.runs, run{at: now, ms: ms, documents: documents})
}

// Snapshot returns the aggregate of the runs still inside the window.
func (s *LatencyStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire(s.now())
	if len(s.runs) == 0 {
		return StatsSnapshot{}
	}

	ms := make([]int64, len(s.runs))
	var total int64
	var docs int
	for i, r := range s.runs {
		ms[i] = r.ms
		total += r.ms
		docs += r.documents
	}
	slices.Sort(ms)

	snap := StatsSnapshot{
		Count:     len(ms),
		Documents: docs,
		MinMs:     ms[0],
		MaxMs:     ms[len(ms)-1],
		AvgMs:     float64(total) / float64(len(ms)),
		P50Ms:     percentile(ms, 50),
		P95Ms:     percentile(ms, 95),
		P99Ms:     percentile(ms, 99),
	}
	if docs > 0 {
		snap.MsPerDocument = float64(total) / float64(docs)
	}
	return snap
}

// expire drops runs older than the window. Runs are appended in time order,
// so the expired ones form a prefix.
func (s *LatencyStats) expire(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.runs) && s.runs[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.runs = append(s.runs[:0], s.runs[i:]...)
	}
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	pos := float64(len(sorted)-1) * pct / 100
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
