package latency

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	lhttp "github.com/wesleyorama2/latprobe/internal/http"
	"github.com/wesleyorama2/latprobe/internal/latency/stats"
)

// Prober performs a single timed request attempt against one target.
//
// Implementations must not retry, and must return a result for every call;
// failures are recorded in the result's outcome rather than returned.
type Prober interface {
	Probe(ctx context.Context, target string, sequence int, timeout time.Duration, headers map[string]string) stats.ProbeResult
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, target string, sequence int, timeout time.Duration, headers map[string]string) stats.ProbeResult

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, target string, sequence int, timeout time.Duration, headers map[string]string) stats.ProbeResult {
	return f(ctx, target, sequence, timeout, headers)
}

// HTTPProber probes targets with one GET request each.
type HTTPProber struct {
	client *lhttp.Client
}

// NewHTTPProber creates a prober backed by a connection-reusing HTTP client.
func NewHTTPProber(options ...lhttp.ClientOption) *HTTPProber {
	return &HTTPProber{client: lhttp.NewClient(options...)}
}

// Probe dispatches one GET request to target and times it until the body
// has been fully read or the attempt failed.
//
// Any HTTP status counts as a success. A timeout is charged the full
// timeout. Cancelling ctx does not interrupt a probe already in flight; it
// ends on its own timeout.
func (p *HTTPProber) Probe(ctx context.Context, target string, sequence int, timeout time.Duration, headers map[string]string) stats.ProbeResult {
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.Get(probeCtx, target, headers)
	elapsed := time.Since(start)

	result := stats.ProbeResult{
		Target:    target,
		Sequence:  sequence,
		StartedAt: start,
		Latency:   elapsed,
	}

	if err != nil {
		result.Outcome = classify(probeCtx, err)
		if result.Outcome.Kind == stats.OutcomeTimeout {
			result.Latency = timeout
		}
		return result
	}

	result.Outcome = stats.Success(resp.StatusCode)
	result.BytesReceived = resp.BytesRead
	return result
}

// Close releases idle connections held by the prober.
func (p *HTTPProber) Close() {
	p.client.CloseIdleConnections()
}

// classify maps a request error to a probe outcome.
func classify(ctx context.Context, err error) stats.Outcome {
	message := err.Error()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return stats.Timeout(message)
	case isTimeout(err):
		return stats.Timeout(message)
	case isConnectionError(err):
		return stats.ConnectionError(message)
	default:
		return stats.OtherError(message)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
