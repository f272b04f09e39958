package latency

import (
	"time"

	"github.com/google/uuid"

	"github.com/wesleyorama2/latprobe/internal/latency/limit"
	"github.com/wesleyorama2/latprobe/internal/latency/stats"
)

// Results is the outcome of one Scheduler.Run. It is read-only once returned.
type Results struct {
	// RunID identifies the run in every report
	RunID uuid.UUID

	// Name is the optional label from the configuration
	Name string

	StartedAt  time.Time
	FinishedAt time.Time

	// Targets lists the probed endpoints in configuration order
	Targets []string

	// Stats holds the statistics of each target, keyed by target
	Stats map[string]*stats.TargetStats

	// Limiter is the final snapshot of the concurrency limiter
	Limiter limit.Stats
}

// Ordered returns the target statistics in configuration order.
func (r *Results) Ordered() []*stats.TargetStats {
	ordered := make([]*stats.TargetStats, 0, len(r.Targets))
	for _, target := range r.Targets {
		if ts, ok := r.Stats[target]; ok {
			ordered = append(ordered, ts)
		}
	}
	return ordered
}

// Summaries returns the summary of every target in configuration order.
func (r *Results) Summaries() []stats.Summary {
	ordered := r.Ordered()
	summaries := make([]stats.Summary, 0, len(ordered))
	for _, ts := range ordered {
		summaries = append(summaries, ts.Summary())
	}
	return summaries
}

// Duration returns the wall clock time of the run.
func (r *Results) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
