package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/wesleyorama2/latprobe/internal/latency"
	"github.com/wesleyorama2/latprobe/internal/latency/limit"
	"github.com/wesleyorama2/latprobe/internal/latency/stats"
)

const (
	upURL   = "https://up.example.com/health"
	downURL = "https://down.example.com"
	testRun = "5f0c7d4e-3b52-4c8e-9a61-2f1e8b9d0a17"
)

var runStart = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

// fixtureResults returns a run with one healthy target, folded out of
// order, and one target without a successful probe.
func fixtureResults() *latency.Results {
	up := stats.NewTargetStats(upURL, 3)
	for _, r := range []stats.ProbeResult{
		{Sequence: 3, Latency: 30 * time.Millisecond, BytesReceived: 512, Outcome: stats.Success(200)},
		{Sequence: 1, Latency: 10 * time.Millisecond, BytesReceived: 512, Outcome: stats.Success(200)},
		{Sequence: 2, Latency: 20 * time.Millisecond, BytesReceived: 0, Outcome: stats.Success(503)},
	} {
		r.Target = upURL
		r.StartedAt = runStart
		up.Fold(r)
	}

	down := stats.NewTargetStats(downURL, 2)
	down.Fold(stats.ProbeResult{Target: downURL, Sequence: 1, StartedAt: runStart, Latency: 6 * time.Second, Outcome: stats.Timeout("context deadline exceeded")})
	down.Fold(stats.ProbeResult{Target: downURL, Sequence: 2, StartedAt: runStart, Outcome: stats.ConnectionError("dial tcp: connection refused")})

	return &latency.Results{
		RunID:      uuid.MustParse(testRun),
		Name:       "fixture",
		StartedAt:  runStart,
		FinishedAt: runStart.Add(6 * time.Second),
		Targets:    []string{upURL, downURL},
		Stats: map[string]*stats.TargetStats{
			upURL:   up,
			downURL: down,
		},
		Limiter: limit.Stats{Capacity: 6, HighWater: 5, Acquired: 5},
	}
}
