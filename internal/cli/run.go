package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	lhttp "github.com/wesleyorama2/latprobe/internal/http"
	"github.com/wesleyorama2/latprobe/internal/latency"
	"github.com/wesleyorama2/latprobe/internal/latency/config"
	"github.com/wesleyorama2/latprobe/internal/logger"
	"github.com/wesleyorama2/latprobe/internal/output"
	"github.com/wesleyorama2/latprobe/internal/report"
)

// SpoofUserAgent is the browser User-Agent sent with --spoof-user-agent.
const SpoofUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// envPrefix prefixes the environment variables that mirror the flags, e.g.
// LATPROBE_SAMPLES or LATPROBE_SPOOF_USER_AGENT.
const envPrefix = "latprobe"

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [urls...]",
		Short: "Probe URLs and write latency reports",
		Example: `  latprobe run -u https://api.example.com/health -u example.org
  latprobe run --samples 10 --concurrency 4 https://a.example.com,https://b.example.com
  latprobe run --config probes.yaml --json run.json --prom /var/lib/node_exporter/latprobe.prom`,
		Args: cobra.ArbitraryArgs,
		RunE: runProbe,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayP("url", "u", nil, "URL to probe (repeatable, comma separated lists allowed)")
	f.IntP("samples", "n", config.DefaultSamples, "Probes per URL")
	f.StringP("timeout", "t", config.DefaultTimeout.String(), "Timeout per probe (e.g. 6s, 500ms, or seconds)")
	f.IntP("concurrency", "c", config.DefaultConcurrency, "Maximum probes in flight across all URLs")
	f.Int("workers", 0, "Worker pool size (0 means one per concurrency slot)")
	f.StringArrayP("header", "H", nil, `Header sent with every probe, as "Name: value" (repeatable)`)
	f.Bool("spoof-user-agent", false, "Send a browser User-Agent header")
	f.StringP("config", "f", "", "YAML or JSON configuration file")
	f.String("name", "", "Label of the run in reports")
	f.String("detailed", config.DefaultDetailedPath, "Per-probe CSV report (empty disables it)")
	f.String("summary", config.DefaultSummaryPath, "Per-URL CSV report (empty disables it)")
	f.String("json", "", "JSON report file")
	f.String("prom", "", "Prometheus textfile collector file")
	f.String("html", "", "HTML report file")
	f.Bool("trace", false, "Print an OpenTelemetry span per probe to stderr")
	f.Bool("no-color", false, "Disable colored output")
	f.BoolP("quiet", "q", false, "Only print the final summary")
	f.String("log-level", "", "Log level: debug, info, warn or error (default from LOG_LEVEL)")
}

// runOptions are the settings of a run that are not part of the
// probing configuration.
type runOptions struct {
	trace    bool
	noColor  bool
	quiet    bool
	logLevel string
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, opts, err := loadRunConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	log := logger.New(cmd.ErrOrStderr(), opts.logLevel, "")
	ctx = logger.IntoContext(ctx, log)

	console := output.NewConsole(out, output.ColorsDisabled(out, opts.noColor), opts.quiet)

	prober := latency.NewHTTPProber(lhttp.WithHeader("User-Agent", "latprobe/"+version))
	defer prober.Close()

	schedOpts := []latency.Option{
		latency.WithLogger(log),
		latency.WithTargetDone(console.TargetDone),
	}
	if opts.trace {
		tp, err := newTracerProvider(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() {
			if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
				log.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()
		schedOpts = append(schedOpts, latency.WithTracer(tp.Tracer("latprobe")))
	}

	console.RunStarted(cfg)

	res, err := latency.NewScheduler(prober, schedOpts...).Run(ctx, cfg)
	if err != nil {
		return err
	}

	console.Summary(res)

	saved, err := writeReports(cfg.Report, res)
	console.Saved(saved...)
	if err != nil {
		log.ErrorContext(ctx, "Failed to write reports", "error", err)
		return err
	}
	return nil
}

// loadRunConfig layers the configuration file, environment variables and
// flags, in increasing order of precedence.
func loadRunConfig(cmd *cobra.Command, args []string) (config.Config, runOptions, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return config.Config{}, runOptions{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg := config.Default()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return config.Config{}, runOptions{}, err
		}
		cfg = *loaded
	}

	if v.IsSet("name") {
		cfg.Name = v.GetString("name")
	}
	if v.IsSet("samples") {
		cfg.Samples = v.GetInt("samples")
	}
	if v.IsSet("timeout") {
		timeout, err := config.ParseDurationString(v.GetString("timeout"))
		if err != nil {
			return config.Config{}, runOptions{}, fmt.Errorf("invalid --timeout: %w", err)
		}
		cfg.Timeout = config.Duration(timeout)
	}
	if v.IsSet("concurrency") {
		cfg.Concurrency = v.GetInt("concurrency")
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if v.IsSet("detailed") {
		cfg.Report.Detailed = v.GetString("detailed")
	}
	if v.IsSet("summary") {
		cfg.Report.Summary = v.GetString("summary")
	}
	if v.IsSet("json") {
		cfg.Report.JSON = v.GetString("json")
	}
	if v.IsSet("prom") {
		cfg.Report.Prometheus = v.GetString("prom")
	}
	if v.IsSet("html") {
		cfg.Report.HTML = v.GetString("html")
	}

	urls, err := cmd.Flags().GetStringArray("url")
	if err != nil {
		return config.Config{}, runOptions{}, err
	}
	cfg.Targets = append(cfg.Targets, splitList(urls)...)
	cfg.Targets = append(cfg.Targets, splitList(args)...)

	headers, err := cmd.Flags().GetStringArray("header")
	if err != nil {
		return config.Config{}, runOptions{}, err
	}
	for _, h := range headers {
		name, value, err := parseHeader(h)
		if err != nil {
			return config.Config{}, runOptions{}, err
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		cfg.Headers[name] = value
	}

	if v.GetBool("spoof-user-agent") && cfg.UserAgent == "" && !hasUserAgent(cfg.Headers) {
		cfg.UserAgent = SpoofUserAgent
	}

	cfg.Normalize()

	opts := runOptions{
		trace:    v.GetBool("trace"),
		noColor:  v.GetBool("no-color"),
		quiet:    v.GetBool("quiet"),
		logLevel: v.GetString("log-level"),
	}
	if opts.logLevel != "" {
		if _, ok := logger.ParseLevel(opts.logLevel); !ok {
			return config.Config{}, runOptions{}, fmt.Errorf("invalid --log-level %q", opts.logLevel)
		}
	}

	return cfg, opts, nil
}

// hasUserAgent reports whether headers set a User-Agent, in any case.
func hasUserAgent(headers map[string]string) bool {
	for name := range headers {
		if strings.EqualFold(name, "User-Agent") {
			return true
		}
	}
	return false
}

// splitList splits every value on commas and drops empty entries.
func splitList(values []string) []string {
	var items []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

// parseHeader parses a "Name: value" header flag.
func parseHeader(h string) (string, string, error) {
	name, value, found := strings.Cut(h, ":")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return "", "", fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
	}
	return name, strings.TrimSpace(value), nil
}

// writeReports writes every configured report and returns the paths that
// were written. It keeps going after a failure so one bad path does not
// lose the other reports.
func writeReports(rc config.ReportConfig, res *latency.Results) ([]string, error) {
	writers := []struct {
		path  string
		write func(string, *latency.Results) error
	}{
		{rc.Detailed, report.WriteDetailedFile},
		{rc.Summary, report.WriteSummaryFile},
		{rc.JSON, report.WriteJSONFile},
		{rc.Prometheus, report.WritePrometheusFile},
		{rc.HTML, func(path string, res *latency.Results) error {
			return report.GenerateHTML(res, path)
		}},
	}

	var saved []string
	var errs []error
	for _, w := range writers {
		if w.path == "" {
			continue
		}
		if err := w.write(w.path, res); err != nil {
			errs = append(errs, err)
			continue
		}
		saved = append(saved, w.path)
	}
	return saved, errors.Join(errs...)
}
