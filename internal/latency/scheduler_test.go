package latency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wesleyorama2/latprobe/internal/latency/config"
	"github.com/wesleyorama2/latprobe/internal/latency/stats"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(samples, concurrency int, targets ...string) config.Config {
	cfg := config.Default()
	cfg.Targets = targets
	cfg.Samples = samples
	cfg.Concurrency = concurrency
	cfg.Timeout = config.Duration(time.Second)
	return cfg
}

// fixedProber answers every probe successfully after delay.
func fixedProber(delay time.Duration, latency time.Duration) ProberFunc {
	return func(_ context.Context, target string, sequence int, _ time.Duration, _ map[string]string) stats.ProbeResult {
		if delay > 0 {
			time.Sleep(delay)
		}
		return stats.ProbeResult{
			Target:    target,
			Sequence:  sequence,
			StartedAt: time.Now(),
			Latency:   latency,
			Outcome:   stats.Success(http.StatusOK),
		}
	}
}

func TestScheduler_EveryTargetGetsExactlySamples(t *testing.T) {
	targets := []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}
	scheduler := NewScheduler(fixedProber(0, 5*time.Millisecond), WithLogger(quietLogger()))

	res, err := scheduler.Run(t.Context(), testConfig(4, 2, targets...))
	require.NoError(t, err)

	assert.Equal(t, targets, res.Targets)
	require.Len(t, res.Stats, len(targets))
	assert.NotEqual(t, uuid.Nil, res.RunID)
	assert.False(t, res.FinishedAt.Before(res.StartedAt))

	for _, target := range targets {
		ts := res.Stats[target]
		require.NotNil(t, ts, target)

		samples := ts.Samples()
		require.Len(t, samples, 4)

		sequences := make([]int, 0, len(samples))
		for _, s := range samples {
			assert.Equal(t, target, s.Target)
			sequences = append(sequences, s.Sequence)
		}
		sort.Ints(sequences)
		assert.Equal(t, []int{1, 2, 3, 4}, sequences)

		successes, failures := ts.Counts()
		assert.Equal(t, 4, successes)
		assert.Zero(t, failures)
	}

	summaries := res.Summaries()
	require.Len(t, summaries, 3)
	assert.Equal(t, "https://b.example.com", summaries[1].Target)
	assert.Equal(t, 5*time.Millisecond, summaries[1].Latency.Mean)
}

func TestScheduler_NeverExceedsConcurrency(t *testing.T) {
	const capacity = 3

	var inFlight, maxInFlight atomic.Int64
	prober := ProberFunc(func(_ context.Context, target string, sequence int, _ time.Duration, _ map[string]string) stats.ProbeResult {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			high := maxInFlight.Load()
			if current <= high || maxInFlight.CompareAndSwap(high, current) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return stats.ProbeResult{Target: target, Sequence: sequence, Latency: time.Millisecond, Outcome: stats.Success(200)}
	})

	cfg := testConfig(5, capacity, "https://a.example.com", "https://b.example.com", "https://c.example.com", "https://d.example.com")
	cfg.Workers = 12

	res, err := NewScheduler(prober, WithLogger(quietLogger())).Run(t.Context(), cfg)
	require.NoError(t, err)

	assert.LessOrEqual(t, maxInFlight.Load(), int64(capacity))
	assert.Positive(t, maxInFlight.Load())
	assert.LessOrEqual(t, res.Limiter.HighWater, capacity)
	assert.Zero(t, res.Limiter.InFlight)
	assert.Equal(t, int64(20), res.Limiter.Acquired)
}

func TestScheduler_InvalidConfigDispatchesNothing(t *testing.T) {
	var calls atomic.Int64
	prober := ProberFunc(func(context.Context, string, int, time.Duration, map[string]string) stats.ProbeResult {
		calls.Add(1)
		return stats.ProbeResult{}
	})

	tests := []struct {
		name      string
		cfg       config.Config
		wantField string
	}{
		{
			name:      "zero samples",
			cfg:       testConfig(0, 2, "https://a.example.com"),
			wantField: "samples",
		},
		{
			name:      "no targets",
			cfg:       testConfig(3, 2),
			wantField: "targets",
		},
		{
			name:      "zero concurrency",
			cfg:       testConfig(3, 0, "https://a.example.com"),
			wantField: "concurrency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewScheduler(prober, WithLogger(quietLogger())).Run(t.Context(), tt.cfg)
			require.Error(t, err)
			assert.Nil(t, res)

			var verrs *config.ValidationErrors
			require.True(t, errors.As(err, &verrs), "error %v is not a *config.ValidationErrors", err)
			assert.Contains(t, verrs.Fields(), tt.wantField)
		})
	}

	assert.Zero(t, calls.Load())
}

func TestScheduler_SingleSlotTerminates(t *testing.T) {
	cfg := testConfig(5, 1, "https://a.example.com", "https://b.example.com")
	cfg.Workers = 4

	done := make(chan *Results, 1)
	go func() {
		res, err := NewScheduler(fixedProber(time.Millisecond, time.Millisecond), WithLogger(quietLogger())).Run(context.Background(), cfg)
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
		done <- res
	}()

	select {
	case res := <-done:
		require.NotNil(t, res)
		assert.Len(t, res.Stats["https://a.example.com"].Samples(), 5)
		assert.Len(t, res.Stats["https://b.example.com"].Samples(), 5)
		assert.Equal(t, 1, res.Limiter.HighWater)
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not finish with a single concurrency slot")
	}
}

func TestScheduler_PanickingProberIsContained(t *testing.T) {
	prober := ProberFunc(func(_ context.Context, target string, sequence int, _ time.Duration, _ map[string]string) stats.ProbeResult {
		if sequence == 2 {
			panic("prober exploded")
		}
		return stats.ProbeResult{Target: target, Sequence: sequence, Latency: 10 * time.Millisecond, Outcome: stats.Success(200)}
	})

	res, err := NewScheduler(prober, WithLogger(quietLogger())).Run(t.Context(), testConfig(3, 1, "https://a.example.com"))
	require.NoError(t, err)

	ts := res.Stats["https://a.example.com"]
	successes, failures := ts.Counts()
	assert.Equal(t, 2, successes)
	assert.Equal(t, 1, failures)

	for _, s := range ts.Samples() {
		if s.Sequence == 2 {
			assert.Equal(t, stats.OutcomeOtherError, s.Outcome.Kind)
			assert.Contains(t, s.Outcome.Message, "prober exploded")
		}
	}
	assert.Zero(t, res.Limiter.InFlight, "the slot of the panicking probe must be released")
}

func TestScheduler_NormalizesProberResults(t *testing.T) {
	prober := ProberFunc(func(context.Context, string, int, time.Duration, map[string]string) stats.ProbeResult {
		return stats.ProbeResult{Target: "wrong", Sequence: 99, Latency: -time.Second, Outcome: stats.Success(200)}
	})

	res, err := NewScheduler(prober, WithLogger(quietLogger())).Run(t.Context(), testConfig(1, 1, "https://a.example.com"))
	require.NoError(t, err)

	samples := res.Stats["https://a.example.com"].Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, "https://a.example.com", samples[0].Target)
	assert.Equal(t, 1, samples[0].Sequence)
	assert.Zero(t, samples[0].Latency)
}

func TestScheduler_CancelledContextStillCompletes(t *testing.T) {
	var calls atomic.Int64
	prober := ProberFunc(func(_ context.Context, target string, sequence int, _ time.Duration, _ map[string]string) stats.ProbeResult {
		calls.Add(1)
		return stats.ProbeResult{Target: target, Sequence: sequence, Outcome: stats.Success(200)}
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	res, err := NewScheduler(prober, WithLogger(quietLogger())).Run(ctx, testConfig(3, 2, "https://a.example.com", "https://b.example.com"))
	require.NoError(t, err)

	assert.Zero(t, calls.Load())
	for _, ts := range res.Ordered() {
		samples := ts.Samples()
		require.Len(t, samples, 3)
		for _, s := range samples {
			assert.Equal(t, stats.OutcomeOtherError, s.Outcome.Kind)
			assert.Contains(t, s.Outcome.Message, "not dispatched")
		}
		assert.Nil(t, ts.Summary().Latency)
	}
}

func TestScheduler_TargetDoneFiresOncePerTarget(t *testing.T) {
	var mu sync.Mutex
	calls := make(map[string]int)
	sizes := make(map[string]int)

	hook := func(ts *stats.TargetStats) {
		mu.Lock()
		defer mu.Unlock()
		calls[ts.Target()]++
		sizes[ts.Target()] = len(ts.Samples())
	}

	targets := []string{"https://a.example.com", "https://b.example.com"}
	_, err := NewScheduler(fixedProber(time.Millisecond, time.Millisecond), WithLogger(quietLogger()), WithTargetDone(hook)).
		Run(t.Context(), testConfig(6, 4, targets...))
	require.NoError(t, err)

	for _, target := range targets {
		assert.Equal(t, 1, calls[target], target)
		assert.Equal(t, 6, sizes[target], target)
	}
}

func TestScheduler_TargetDoneRunsWithoutSlot(t *testing.T) {
	second := make(chan struct{})
	prober := ProberFunc(func(_ context.Context, target string, sequence int, _ time.Duration, _ map[string]string) stats.ProbeResult {
		if target == "https://b.example.com" {
			close(second)
		}
		return stats.ProbeResult{Target: target, Sequence: sequence, Latency: time.Millisecond, Outcome: stats.Success(200)}
	})

	var once sync.Once
	var unblocked bool
	hook := func(ts *stats.TargetStats) {
		once.Do(func() {
			select {
			case <-second:
				unblocked = true
			case <-time.After(2 * time.Second):
			}
		})
	}

	cfg := testConfig(1, 1, "https://a.example.com", "https://b.example.com")
	cfg.Workers = 2

	_, err := NewScheduler(prober, WithLogger(quietLogger()), WithTargetDone(hook)).Run(t.Context(), cfg)
	require.NoError(t, err)
	assert.True(t, unblocked, "the second target must get the slot while the first target's hook runs")
}

func TestScheduler_TracesEveryProbe(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	prober := ProberFunc(func(_ context.Context, target string, sequence int, timeout time.Duration, _ map[string]string) stats.ProbeResult {
		if target == "https://down.example.com" {
			return stats.ProbeResult{Target: target, Sequence: sequence, Latency: timeout, Outcome: stats.Timeout("deadline exceeded")}
		}
		return stats.ProbeResult{Target: target, Sequence: sequence, Latency: time.Millisecond, Outcome: stats.Success(200)}
	})

	_, err := NewScheduler(prober, WithLogger(quietLogger()), WithTracer(provider.Tracer("test"))).
		Run(t.Context(), testConfig(2, 2, "https://up.example.com", "https://down.example.com"))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 4)

	errored := 0
	for _, span := range spans {
		assert.Equal(t, "probe", span.Name())
		if span.Status().Code == codes.Error {
			errored++
		}
	}
	assert.Equal(t, 2, errored)
}

func TestScheduler_WithHTTPProber(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("X-Probe") != "latprobe" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, "pong")
	}))
	defer server.Close()

	prober := NewHTTPProber()
	defer prober.Close()

	cfg := testConfig(3, 2, server.URL+"/ping", server.URL+"/health")
	cfg.Headers = map[string]string{"X-Probe": "latprobe"}

	res, err := NewScheduler(prober, WithLogger(quietLogger())).Run(t.Context(), cfg)
	require.NoError(t, err)

	assert.Equal(t, int64(6), hits.Load())
	for _, summary := range res.Summaries() {
		assert.Equal(t, 3, summary.SuccessCount)
		assert.Equal(t, 3, summary.OKCount)
		require.NotNil(t, summary.Latency)
		assert.LessOrEqual(t, summary.Latency.Min, summary.Latency.Max)
	}
}
