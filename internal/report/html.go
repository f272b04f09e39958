package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"slices"
	"time"

	"github.com/wesleyorama2/latprobe/internal/latency"
	"github.com/wesleyorama2/latprobe/internal/latency/stats"
)

// htmlData contains all data needed to render the HTML report.
type htmlData struct {
	Title     string
	RunID     string
	CheckedAt string
	Duration  time.Duration
	Limiter   string
	Targets   []htmlTarget
}

type htmlTarget struct {
	Summary stats.Summary
	Probes  []stats.ProbeResult
}

// GenerateHTML renders the HTML report of res and writes it to a file.
func GenerateHTML(res *latency.Results, outputPath string) error {
	html, err := GenerateHTMLString(res)
	if err != nil {
		return fmt.Errorf("failed to generate HTML: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}

	return nil
}

// GenerateHTMLString renders the HTML report of res.
func GenerateHTMLString(res *latency.Results) (string, error) {
	if res == nil {
		return "", fmt.Errorf("results cannot be nil")
	}

	tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	title := res.Name
	if title == "" {
		title = "API Latency Report"
	}

	data := htmlData{
		Title:     title,
		RunID:     res.RunID.String(),
		CheckedAt: res.StartedAt.UTC().Format(CheckedAtLayout),
		Duration:  res.Duration(),
		Limiter:   fmt.Sprintf("%d of %d slots", res.Limiter.HighWater, res.Limiter.Capacity),
	}
	for _, ts := range res.Ordered() {
		probes := ts.Samples()
		slices.SortFunc(probes, bySequence)
		data.Targets = append(data.Targets, htmlTarget{Summary: ts.Summary(), Probes: probes})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// templateFuncs returns the template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"ms":          formatMillis,
		"successRate": successRate,
		"statusClass": statusClass,
		"formatBytes": formatBytes,
	}
}

// successRate returns the share of probes that got a response, in percent.
func successRate(s stats.Summary) string {
	return fmt.Sprintf("%.1f", s.SuccessRate()*100)
}

func statusClass(o stats.Outcome) string {
	switch {
	case o.IsOK():
		return "ok"
	case o.IsSuccess():
		return "warn"
	default:
		return "error"
	}
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
