package stats

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary is the aggregate view of a target's results.
type Summary struct {
	Target       string `json:"target"`
	Total        int    `json:"total"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`

	// OKCount counts successes whose status code was 2xx or 3xx.
	OKCount int `json:"okCount"`

	// Latency is nil when no probe succeeded.
	Latency *LatencyStats `json:"latency,omitempty"`
}

// LatencyStats contains latency statistics over successful samples.
//
// Min, Max, Mean and StdDev are exact. The percentiles come from an HDR
// histogram with microsecond resolution.
type LatencyStats struct {
	Count  int           `json:"count"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
}

// Defined reports whether latency statistics are available.
func (s Summary) Defined() bool {
	return s.Latency != nil
}

// SuccessRate returns the fraction of probes that received a response.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.Total)
}

// computeLatency uses the sample standard deviation (n-1 denominator).
// A single sample has a standard deviation of zero.
func computeLatency(latencies []time.Duration) *LatencyStats {
	values := make([]float64, len(latencies))
	for i, l := range latencies {
		values[i] = float64(l)
	}

	result := &LatencyStats{
		Count: len(values),
		Min:   toDuration(floats.Min(values)),
		Max:   toDuration(floats.Max(values)),
	}

	if len(values) == 1 {
		result.Mean = latencies[0]
		return result
	}

	mean, stdDev := stat.MeanStdDev(values, nil)
	result.Mean = toDuration(mean)
	result.StdDev = toDuration(stdDev)
	return result
}

func toDuration(nanos float64) time.Duration {
	return time.Duration(math.Round(nanos))
}
