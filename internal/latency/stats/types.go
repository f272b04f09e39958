// Package stats holds probe outcomes and folds them into per-target latency statistics.
package stats

import (
	"fmt"
	"time"
)

// OutcomeKind classifies how a single probe attempt ended.
type OutcomeKind int

const (
	// OutcomeSuccess means a response was received, whatever its status code.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeTimeout means the attempt ran out of its time budget.
	OutcomeTimeout
	// OutcomeConnectionError means a transport failure (DNS, refused, reset).
	OutcomeConnectionError
	// OutcomeOtherError covers every other failure.
	OutcomeOtherError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeConnectionError:
		return "connection_error"
	case OutcomeOtherError:
		return "other_error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result classification of a probe.
//
// StatusCode is only meaningful for OutcomeSuccess. Message carries the
// error text for the failure kinds.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	StatusCode int         `json:"statusCode,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// Success returns a successful outcome with the given HTTP status code.
func Success(statusCode int) Outcome {
	return Outcome{Kind: OutcomeSuccess, StatusCode: statusCode}
}

// Timeout returns a timeout outcome.
func Timeout(message string) Outcome {
	return Outcome{Kind: OutcomeTimeout, Message: message}
}

// ConnectionError returns a transport failure outcome.
func ConnectionError(message string) Outcome {
	return Outcome{Kind: OutcomeConnectionError, Message: message}
}

// OtherError returns an outcome for any unclassified failure.
func OtherError(message string) Outcome {
	return Outcome{Kind: OutcomeOtherError, Message: message}
}

// IsSuccess reports whether a response was received.
func (o Outcome) IsSuccess() bool {
	return o.Kind == OutcomeSuccess
}

// IsOK reports whether a response was received with a 2xx or 3xx status.
func (o Outcome) IsOK() bool {
	return o.Kind == OutcomeSuccess && o.StatusCode >= 200 && o.StatusCode < 400
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return fmt.Sprintf("success(%d)", o.StatusCode)
	case OutcomeOtherError:
		return fmt.Sprintf("other_error(%s)", o.Message)
	default:
		return o.Kind.String()
	}
}

// ProbeResult is the immutable record of one probe attempt.
type ProbeResult struct {
	// Target is the endpoint that was probed
	Target string `json:"target"`

	// Sequence is the 1-based index of the probe within its target's sample set
	Sequence int `json:"sequence"`

	// StartedAt is when the request was dispatched
	StartedAt time.Time `json:"startedAt"`

	// Latency is the elapsed time of the attempt. Timeouts are charged the
	// full configured timeout.
	Latency time.Duration `json:"latency"`

	// BytesReceived is the size of the response body
	BytesReceived int64 `json:"bytesReceived,omitempty"`

	Outcome Outcome `json:"outcome"`
}
