// Package output renders probe progress and results on the console.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/wesleyorama2/latprobe/internal/latency"
	"github.com/wesleyorama2/latprobe/internal/latency/config"
	"github.com/wesleyorama2/latprobe/internal/latency/stats"
)

const ruleWidth = 56

// Console prints human-readable progress of a run.
//
// TargetDone is called from scheduler workers, so every method serialises
// its writes.
type Console struct {
	writer  io.Writer
	colors  *ColorScheme
	noColor bool
	quiet   bool

	mu sync.Mutex
}

// NewConsole creates a console writing to w. A nil w means stdout. In quiet
// mode only the final summary and errors are printed.
func NewConsole(w io.Writer, noColor, quiet bool) *Console {
	if w == nil {
		w = os.Stdout
	}

	colors := forcedColorScheme()
	if noColor {
		colors = NoColorScheme()
	}

	return &Console{
		writer:  w,
		colors:  colors,
		noColor: noColor,
		quiet:   quiet,
	}
}

// RunStarted prints the run header.
func (c *Console) RunStarted(cfg config.Config) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	title := "API Latency Monitor"
	if cfg.Name != "" {
		title = cfg.Name
	}

	rule := strings.Repeat("━", ruleWidth)
	c.writeln(c.colors.Title.Sprint(rule))
	c.writeln(c.colors.Label.Sprint(title))
	c.writeln(c.colors.Title.Sprint(rule))
	c.writeln(fmt.Sprintf("Checking %d URL(s): %d samples each, timeout %s, concurrency %d",
		len(cfg.Targets), cfg.Samples, cfg.Timeout, cfg.Concurrency))
	c.writeln("")
}

// TargetDone prints the result line of a completed target.
func (c *Console) TargetDone(ts *stats.TargetStats) {
	if c.quiet {
		return
	}

	summary := ts.Summary()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("Checking %s ...", c.colors.URL.Sprint(summary.Target)))
	if summary.Latency == nil {
		c.writeln(fmt.Sprintf("  %s Result: %s", ErrorIcon(c.noColor), c.colors.Error.Sprint("no successful requests")))
		return
	}

	icon := SuccessIcon(c.noColor)
	if summary.FailureCount > 0 {
		icon = WarningIcon(c.noColor)
	}
	c.writeln(fmt.Sprintf("  %s Result: avg %s, successes %d/%d",
		icon,
		c.colors.Latency.Sprint(FormatMillis(summary.Latency.Mean)),
		summary.SuccessCount,
		summary.Total))
}

// Summary prints the per-target statistics table of a finished run.
func (c *Console) Summary(res *latency.Results) {
	c.mu.Lock()
	defer c.mu.Unlock()

	summaries := res.Summaries()

	if c.quiet {
		for _, s := range summaries {
			if s.Latency == nil {
				c.writeln(fmt.Sprintf("%s FAILED", s.Target))
				continue
			}
			c.writeln(fmt.Sprintf("%s %s %d/%d", s.Target, FormatMillis(s.Latency.Mean), s.SuccessCount, s.Total))
		}
		return
	}

	c.writeln("")
	c.writeln(c.colors.Label.Sprint("Summary:"))

	tw := tabwriter.NewWriter(c.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  URL\tOK\tMIN\tAVG\tMAX\tSTDEV\tP95")
	for _, s := range summaries {
		counts := fmt.Sprintf("%d/%d", s.SuccessCount, s.Total)
		if s.Latency == nil {
			fmt.Fprintf(tw, "  %s\t%s\t-\t-\t-\t-\t-\n", s.Target, counts)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Target,
			counts,
			FormatMillis(s.Latency.Min),
			FormatMillis(s.Latency.Mean),
			FormatMillis(s.Latency.Max),
			FormatMillis(s.Latency.StdDev),
			FormatMillis(s.Latency.P95))
	}
	tw.Flush()

	c.writeln("")
	c.writeln(fmt.Sprintf("Probes: %d in %s (max %d in flight)",
		res.Limiter.Acquired, formatDuration(res.Duration()), res.Limiter.HighWater))
}

// Saved reports the files a run was written to.
func (c *Console) Saved(paths ...string) {
	if c.quiet || len(paths) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln("")
	c.writeln(fmt.Sprintf("Saved: %s", strings.Join(paths, " and ")))
}

// Error prints err in the error color.
func (c *Console) Error(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("%s %s", ErrorIcon(c.noColor), c.colors.Error.Sprint(err.Error())))
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

// FormatMillis formats a duration as milliseconds with two decimals.
func FormatMillis(d time.Duration) string {
	return fmt.Sprintf("%.2f ms", float64(d)/float64(time.Millisecond))
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}
