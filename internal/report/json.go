package report

import (
	"encoding/json"
	"io"
	"math"
	"slices"
	"time"

	"github.com/wesleyorama2/latprobe/internal/latency"
	"github.com/wesleyorama2/latprobe/internal/latency/limit"
	"github.com/wesleyorama2/latprobe/internal/latency/stats"
)

// Document is the JSON representation of a run.
type Document struct {
	RunID      string           `json:"runId"`
	Name       string           `json:"name,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	DurationMS float64          `json:"durationMs"`
	Limiter    limit.Stats      `json:"limiter"`
	Targets    []TargetDocument `json:"targets"`
}

// TargetDocument holds the summary and samples of one target.
type TargetDocument struct {
	URL          string          `json:"url"`
	Samples      int             `json:"samples"`
	SuccessCount int             `json:"successCount"`
	FailureCount int             `json:"failureCount"`
	OKCount      int             `json:"okCount"`
	Latency      *LatencyMillis  `json:"latency"`
	Probes       []ProbeDocument `json:"probes"`
}

// LatencyMillis carries latency statistics in milliseconds.
type LatencyMillis struct {
	Min    float64 `json:"minMs"`
	Mean   float64 `json:"avgMs"`
	Max    float64 `json:"maxMs"`
	StdDev float64 `json:"stdevMs"`
	P50    float64 `json:"p50Ms"`
	P90    float64 `json:"p90Ms"`
	P95    float64 `json:"p95Ms"`
	P99    float64 `json:"p99Ms"`
}

// ProbeDocument is one probe of a target.
type ProbeDocument struct {
	Sequence      int               `json:"sequence"`
	StartedAt     time.Time         `json:"startedAt"`
	LatencyMS     float64           `json:"latencyMs"`
	Outcome       stats.OutcomeKind `json:"outcome"`
	StatusCode    int               `json:"statusCode,omitempty"`
	BytesReceived int64             `json:"bytesReceived,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// NewDocument converts res into its JSON representation.
func NewDocument(res *latency.Results) Document {
	doc := Document{
		RunID:      res.RunID.String(),
		Name:       res.Name,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		DurationMS: millis(res.Duration()),
		Limiter:    res.Limiter,
		Targets:    make([]TargetDocument, 0, len(res.Targets)),
	}

	for _, ts := range res.Ordered() {
		summary := ts.Summary()
		target := TargetDocument{
			URL:          summary.Target,
			Samples:      summary.Total,
			SuccessCount: summary.SuccessCount,
			FailureCount: summary.FailureCount,
			OKCount:      summary.OKCount,
		}
		if l := summary.Latency; l != nil {
			target.Latency = &LatencyMillis{
				Min:    millis(l.Min),
				Mean:   millis(l.Mean),
				Max:    millis(l.Max),
				StdDev: millis(l.StdDev),
				P50:    millis(l.P50),
				P90:    millis(l.P90),
				P95:    millis(l.P95),
				P99:    millis(l.P99),
			}
		}

		samples := ts.Samples()
		slices.SortFunc(samples, bySequence)
		target.Probes = make([]ProbeDocument, 0, len(samples))
		for _, s := range samples {
			target.Probes = append(target.Probes, ProbeDocument{
				Sequence:      s.Sequence,
				StartedAt:     s.StartedAt,
				LatencyMS:     millis(s.Latency),
				Outcome:       s.Outcome.Kind,
				StatusCode:    s.Outcome.StatusCode,
				BytesReceived: s.BytesReceived,
				Error:         s.Outcome.Message,
			})
		}
		doc.Targets = append(doc.Targets, target)
	}

	return doc
}

// WriteJSON writes res as an indented JSON document.
func WriteJSON(w io.Writer, res *latency.Results) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewDocument(res))
}

// WriteJSONFile writes the JSON report to path.
func WriteJSONFile(path string, res *latency.Results) error {
	return writeFile(path, res, WriteJSON)
}

// millis converts d to milliseconds rounded to two decimals.
func millis(d time.Duration) float64 {
	return math.Round(float64(d)/float64(10*time.Microsecond)) / 100
}
