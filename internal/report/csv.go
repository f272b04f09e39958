// Package report writes the results of a probe run to files.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/wesleyorama2/latprobe/internal/latency"
	"github.com/wesleyorama2/latprobe/internal/latency/stats"
)

// CheckedAtLayout is the timestamp format of the checked_at column.
const CheckedAtLayout = "2006-01-02 15:04:05 UTC"

// DetailedHeader lists the columns of the per-probe report.
var DetailedHeader = []string{
	"checked_at", "url", "sample_index", "status", "latency_ms",
	"response_bytes", "error", "outcome", "run_id",
}

// SummaryHeader lists the columns of the per-target report.
var SummaryHeader = []string{
	"checked_at", "url", "samples", "success_count", "failure_count",
	"min_ms", "avg_ms", "max_ms", "stdev_ms",
	"ok_count", "p50_ms", "p95_ms", "p99_ms", "run_id",
}

// WriteDetailed writes one row per probe, grouped by target in
// configuration order and sorted by sample index within a target.
func WriteDetailed(w io.Writer, res *latency.Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DetailedHeader); err != nil {
		return err
	}

	checkedAt := res.StartedAt.UTC().Format(CheckedAtLayout)
	runID := res.RunID.String()

	for _, ts := range res.Ordered() {
		samples := ts.Samples()
		slices.SortFunc(samples, bySequence)

		for _, s := range samples {
			status, size := "", ""
			if s.Outcome.IsSuccess() {
				status = strconv.Itoa(s.Outcome.StatusCode)
				size = strconv.FormatInt(s.BytesReceived, 10)
			}
			row := []string{
				checkedAt,
				s.Target,
				strconv.Itoa(s.Sequence),
				status,
				formatMillis(s.Latency),
				size,
				s.Outcome.Message,
				s.Outcome.Kind.String(),
				runID,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSummary writes one row per target. Latency columns are empty for a
// target without successful probes.
func WriteSummary(w io.Writer, res *latency.Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return err
	}

	checkedAt := res.StartedAt.UTC().Format(CheckedAtLayout)
	runID := res.RunID.String()

	for _, s := range res.Summaries() {
		row := []string{
			checkedAt,
			s.Target,
			strconv.Itoa(s.Total),
			strconv.Itoa(s.SuccessCount),
			strconv.Itoa(s.FailureCount),
			"", "", "", "",
			strconv.Itoa(s.OKCount),
			"", "", "",
			runID,
		}
		if l := s.Latency; l != nil {
			row[5] = formatMillis(l.Min)
			row[6] = formatMillis(l.Mean)
			row[7] = formatMillis(l.Max)
			row[8] = formatMillis(l.StdDev)
			row[10] = formatMillis(l.P50)
			row[11] = formatMillis(l.P95)
			row[12] = formatMillis(l.P99)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteDetailedFile writes the per-probe report to path.
func WriteDetailedFile(path string, res *latency.Results) error {
	return writeFile(path, res, WriteDetailed)
}

// WriteSummaryFile writes the per-target report to path.
func WriteSummaryFile(path string, res *latency.Results) error {
	return writeFile(path, res, WriteSummary)
}

func writeFile(path string, res *latency.Results, write func(io.Writer, *latency.Results) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if err := write(f, res); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report %s: %w", path, err)
	}
	return nil
}

func bySequence(a, b stats.ProbeResult) int {
	return a.Sequence - b.Sequence
}

// formatMillis renders d in milliseconds rounded to two decimals.
func formatMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 2, 64)
}
