package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("report is not valid CSV: %v", err)
	}
	return records
}

func TestWriteDetailed(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDetailed(&buf, fixtureResults()); err != nil {
		t.Fatalf("WriteDetailed() error = %v", err)
	}

	want := [][]string{
		DetailedHeader,
		{"2026-03-14 15:09:26 UTC", upURL, "1", "200", "10.00", "512", "", "success", testRun},
		{"2026-03-14 15:09:26 UTC", upURL, "2", "503", "20.00", "0", "", "success", testRun},
		{"2026-03-14 15:09:26 UTC", upURL, "3", "200", "30.00", "512", "", "success", testRun},
		{"2026-03-14 15:09:26 UTC", downURL, "1", "", "6000.00", "", "context deadline exceeded", "timeout", testRun},
		{"2026-03-14 15:09:26 UTC", downURL, "2", "", "0.00", "", "dial tcp: connection refused", "connection_error", testRun},
	}

	if diff := cmp.Diff(want, readCSV(t, buf.Bytes())); diff != "" {
		t.Errorf("WriteDetailed() mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, fixtureResults()); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}

	records := readCSV(t, buf.Bytes())
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}
	if diff := cmp.Diff(SummaryHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	up := records[1]
	wantUp := map[string]string{
		"url":           upURL,
		"samples":       "3",
		"success_count": "3",
		"failure_count": "0",
		"min_ms":        "10.00",
		"avg_ms":        "20.00",
		"max_ms":        "30.00",
		"stdev_ms":      "10.00",
		"ok_count":      "2",
		"run_id":        testRun,
	}
	for i, column := range SummaryHeader {
		if want, ok := wantUp[column]; ok && up[i] != want {
			t.Errorf("up.%s = %q, want %q", column, up[i], want)
		}
	}

	down := records[2]
	for i, column := range SummaryHeader {
		switch column {
		case "min_ms", "avg_ms", "max_ms", "stdev_ms", "p50_ms", "p95_ms", "p99_ms":
			if down[i] != "" {
				t.Errorf("down.%s = %q, want an empty cell for undefined statistics", column, down[i])
			}
		case "failure_count":
			if down[i] != "2" {
				t.Errorf("down.failure_count = %q, want 2", down[i])
			}
		}
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	detailed := filepath.Join(dir, "detailed.csv")
	summary := filepath.Join(dir, "summary.csv")

	res := fixtureResults()
	if err := WriteDetailedFile(detailed, res); err != nil {
		t.Fatalf("WriteDetailedFile() error = %v", err)
	}
	if err := WriteSummaryFile(summary, res); err != nil {
		t.Fatalf("WriteSummaryFile() error = %v", err)
	}

	for path, rows := range map[string]int{detailed: 6, summary: 3} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if got := len(readCSV(t, data)); got != rows {
			t.Errorf("%s has %d records, want %d", filepath.Base(path), got, rows)
		}
	}
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "report.csv")
	if err := WriteSummaryFile(path, fixtureResults()); err == nil {
		t.Error("WriteSummaryFile() should fail when the directory does not exist")
	}
}
