// Package latency runs probing campaigns: every target is probed a fixed
// number of times by a pool of workers while a process-wide limiter caps the
// number of requests in flight.
package latency

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wesleyorama2/latprobe/internal/latency/config"
	"github.com/wesleyorama2/latprobe/internal/latency/limit"
	"github.com/wesleyorama2/latprobe/internal/latency/stats"
	"github.com/wesleyorama2/latprobe/internal/logger"
)

const tracerName = "github.com/wesleyorama2/latprobe/internal/latency"

// Scheduler fans probe tasks out to a worker pool and collects the results.
//
// A Scheduler holds no per-run state; Run may be called repeatedly and from
// several goroutines, each call getting its own limiter and statistics.
type Scheduler struct {
	prober     Prober
	logger     *slog.Logger
	tracer     trace.Tracer
	targetDone func(*stats.TargetStats)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for run progress. Without it the logger
// carried by the Run context is used.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithTracer wraps every probe in a span started from tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

// WithTargetDone registers fn to be called once per target, from the worker
// that folded the target's last result. fn must not block for long; it runs
// while the run is still in progress.
func WithTargetDone(fn func(*stats.TargetStats)) Option {
	return func(s *Scheduler) {
		s.targetDone = fn
	}
}

// NewScheduler creates a scheduler that issues probes through prober.
func NewScheduler(prober Prober, options ...Option) *Scheduler {
	s := &Scheduler{
		prober: prober,
		tracer: otel.Tracer(tracerName),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// task is one probe to perform: the sequence-th sample of a target.
type task struct {
	stats    *stats.TargetStats
	sequence int
}

// Run probes each target cfg.Samples times and returns once every
// probe has been folded into its target's statistics.
//
// An invalid configuration is rejected before anything is dispatched.
// Cancelling ctx stops new probes from acquiring a slot; those are recorded
// as failed results, so the returned Results are always complete.
func (s *Scheduler) Run(ctx context.Context, cfg config.Config) (*Results, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	limiter, err := limit.New(cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := s.logger
	if log == nil {
		log = logger.FromContext(ctx)
	}

	res := &Results{
		RunID:     uuid.New(),
		Name:      cfg.Name,
		StartedAt: time.Now().UTC(),
		Targets:   make([]string, 0, len(cfg.Targets)),
		Stats:     make(map[string]*stats.TargetStats, len(cfg.Targets)),
	}
	for _, target := range cfg.Targets {
		res.Targets = append(res.Targets, target)
		res.Stats[target] = stats.NewTargetStats(target, cfg.Samples)
	}

	total := len(cfg.Targets) * cfg.Samples
	workers := min(cfg.WorkerCount(), total)
	run := runState{
		limiter: limiter,
		timeout: time.Duration(cfg.Timeout),
		headers: cfg.RequestHeaders(),
		log:     log.With("run_id", res.RunID.String()),
	}

	run.log.InfoContext(ctx, "Starting probe run",
		"targets", len(cfg.Targets),
		"samples", cfg.Samples,
		"concurrency", cfg.Concurrency,
		"workers", workers,
		"timeout", run.timeout,
	)

	tasks := make(chan task)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				s.execute(ctx, &run, t)
			}
		}()
	}

	for _, target := range res.Targets {
		ts := res.Stats[target]
		for seq := 1; seq <= cfg.Samples; seq++ {
			tasks <- task{stats: ts, sequence: seq}
		}
	}
	close(tasks)
	wg.Wait()

	res.FinishedAt = time.Now().UTC()
	res.Limiter = limiter.Stats()

	run.log.InfoContext(ctx, "Probe run finished",
		"probes", total,
		"duration", res.Duration(),
		"max_in_flight", res.Limiter.HighWater,
	)
	return res, nil
}

// runState is shared read-only by the workers of one run.
type runState struct {
	limiter *limit.Limiter
	timeout time.Duration
	headers map[string]string
	log     *slog.Logger
}

// execute performs one task. It folds exactly one result into the task's
// target whatever happens, and releases the slot only after the fold. The
// targetDone hook runs once the slot is free.
func (s *Scheduler) execute(ctx context.Context, run *runState, t task) {
	target := t.stats.Target()
	ctx, span := s.tracer.Start(ctx, "probe", trace.WithAttributes(
		attribute.String("probe.target", target),
		attribute.Int("probe.sequence", t.sequence),
	))
	defer span.End()

	var result stats.ProbeResult
	token, err := run.limiter.Acquire(ctx)
	if err != nil {
		result = failedResult(target, t.sequence, fmt.Sprintf("not dispatched: %v", err))
	} else {
		result = s.probe(ctx, run, target, t.sequence)
	}

	span.SetAttributes(
		attribute.Stringer("probe.outcome", result.Outcome.Kind),
		attribute.Int64("probe.latency_us", result.Latency.Microseconds()),
	)
	if result.Outcome.IsSuccess() {
		span.SetAttributes(attribute.Int("http.response.status_code", result.Outcome.StatusCode))
	} else {
		span.SetStatus(codes.Error, result.Outcome.String())
	}

	run.log.DebugContext(ctx, "Probe finished",
		"target", target,
		"sequence", t.sequence,
		"outcome", result.Outcome.String(),
		"latency", result.Latency,
	)

	done := t.stats.Fold(result)
	if token != nil {
		token.Release()
	}
	if done {
		s.finishTarget(ctx, run, t.stats)
	}
}

// probe calls the prober and turns a panic into a failed result.
func (s *Scheduler) probe(ctx context.Context, run *runState, target string, sequence int) (result stats.ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			run.log.ErrorContext(ctx, "Prober panicked", "target", target, "sequence", sequence, "panic", r)
			result = failedResult(target, sequence, fmt.Sprintf("probe panicked: %v", r))
		}
	}()

	result = s.prober.Probe(ctx, target, sequence, run.timeout, run.headers)
	result.Target = target
	result.Sequence = sequence
	if result.Latency < 0 {
		result.Latency = 0
	}
	return result
}

func (s *Scheduler) finishTarget(ctx context.Context, run *runState, ts *stats.TargetStats) {
	successes, failures := ts.Counts()
	run.log.InfoContext(ctx, "Target complete",
		"target", ts.Target(),
		"successes", successes,
		"failures", failures,
	)
	if s.targetDone != nil {
		s.targetDone(ts)
	}
}

func failedResult(target string, sequence int, message string) stats.ProbeResult {
	return stats.ProbeResult{
		Target:    target,
		Sequence:  sequence,
		StartedAt: time.Now(),
		Outcome:   stats.OtherError(message),
	}
}
