package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1µs to 1 hour, 3 significant figures.
const (
	histogramMin     int64 = 1
	histogramMax     int64 = 3600000000
	histogramSigFigs       = 3
)

// TargetStats accumulates the probe results of a single target.
//
// # Thread Safety
//
// Fold may be called from many goroutines at once. Every fold appends the
// sample, updates the counters and records the histogram value inside one
// critical section, so readers never observe a partially folded result.
type TargetStats struct {
	target   string
	expected int

	mu           sync.Mutex
	samples      []ProbeResult
	successes    []time.Duration
	successCount int
	failureCount int
	okCount      int
	hist         *hdrhistogram.Histogram

	done     chan struct{}
	doneOnce sync.Once
}

// NewTargetStats creates the aggregator for target. expected is the number
// of results after which the target is considered complete.
func NewTargetStats(target string, expected int) *TargetStats {
	capacity := expected
	if capacity < 0 {
		capacity = 0
	}
	return &TargetStats{
		target:    target,
		expected:  expected,
		samples:   make([]ProbeResult, 0, capacity),
		successes: make([]time.Duration, 0, capacity),
		hist:      hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		done:      make(chan struct{}),
	}
}

// Target returns the endpoint identifier.
func (s *TargetStats) Target() string {
	return s.target
}

// Fold incorporates one probe result.
//
// It returns true for exactly one call: the fold that brings the number of
// samples up to the expected count.
func (s *TargetStats) Fold(result ProbeResult) bool {
	s.mu.Lock()
	s.samples = append(s.samples, result)
	if result.Outcome.IsSuccess() {
		s.successCount++
		s.successes = append(s.successes, result.Latency)
		s.recordHistogram(result.Latency)
		if result.Outcome.IsOK() {
			s.okCount++
		}
	} else {
		s.failureCount++
	}
	reached := len(s.samples) == s.expected
	s.mu.Unlock()

	if !reached {
		return false
	}

	completed := false
	s.doneOnce.Do(func() {
		close(s.done)
		completed = true
	})
	return completed
}

// recordHistogram must be called with s.mu held; the HDR histogram is not
// safe for concurrent use.
func (s *TargetStats) recordHistogram(latency time.Duration) {
	micros := latency.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}
	_ = s.hist.RecordValue(micros)
}

// Done is closed once the expected number of results has been folded.
func (s *TargetStats) Done() <-chan struct{} {
	return s.done
}

// Samples returns a copy of the folded results in arrival order.
func (s *TargetStats) Samples() []ProbeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]ProbeResult, len(s.samples))
	copy(result, s.samples)
	return result
}

// Counts returns the success and failure counters.
func (s *TargetStats) Counts() (successes, failures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successCount, s.failureCount
}

// Summary computes the aggregate statistics of the folded results.
//
// Latency statistics only consider successful samples. When there are none,
// Summary.Latency is nil.
func (s *TargetStats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := Summary{
		Target:       s.target,
		Total:        len(s.samples),
		SuccessCount: s.successCount,
		FailureCount: s.failureCount,
		OKCount:      s.okCount,
	}

	if len(s.successes) > 0 {
		latency := computeLatency(s.successes)
		latency.P50 = s.quantile(50)
		latency.P90 = s.quantile(90)
		latency.P95 = s.quantile(95)
		latency.P99 = s.quantile(99)
		summary.Latency = latency
	}

	return summary
}

func (s *TargetStats) quantile(q float64) time.Duration {
	return time.Duration(s.hist.ValueAtQuantile(q)) * time.Microsecond
}
