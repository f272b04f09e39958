// Package config provides configuration parsing and validation for latency probing runs.
package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when a value is not given on the command line or in a file.
const (
	DefaultSamples      = 3
	DefaultTimeout      = 6 * time.Second
	DefaultConcurrency  = 6
	DefaultDetailedPath = "api_latency_detailed.csv"
	DefaultSummaryPath  = "api_latency_summary.csv"
)

// Config is the input of a probing run.
//
// Example YAML:
//
//	name: "Public APIs"
//	targets:
//	  - https://api.example.com/health
//	  - https://www.example.org
//	samples: 5
//	timeout: 6s
//	concurrency: 6
//	headers:
//	  Accept: application/json
//	report:
//	  detailed: api_latency_detailed.csv
//	  summary: api_latency_summary.csv
type Config struct {
	// Name labels the run in reports (optional)
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Targets are the endpoints to probe, in order
	Targets []string `json:"targets,omitempty" yaml:"targets,omitempty"`

	// Samples is the number of probes issued per target
	Samples int `json:"samples,omitempty" yaml:"samples,omitempty"`

	// Timeout bounds each probe
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Concurrency is the maximum number of probes in flight across all targets
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// Workers is the size of the worker pool. Zero means one worker per
	// concurrency slot.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Headers are sent with every probe
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// UserAgent overrides the User-Agent header when set
	UserAgent string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`

	// Report controls where results are written
	Report ReportConfig `json:"report,omitempty" yaml:"report,omitempty"`
}

// ReportConfig lists the output files of a run. An empty path disables that output.
type ReportConfig struct {
	Detailed   string `json:"detailed,omitempty" yaml:"detailed,omitempty"`
	Summary    string `json:"summary,omitempty" yaml:"summary,omitempty"`
	JSON       string `json:"json,omitempty" yaml:"json,omitempty"`
	Prometheus string `json:"prometheus,omitempty" yaml:"prometheus,omitempty"`
	HTML       string `json:"html,omitempty" yaml:"html,omitempty"`
}

// Default returns a configuration with every default applied and no targets.
func Default() Config {
	return Config{
		Samples:     DefaultSamples,
		Timeout:     Duration(DefaultTimeout),
		Concurrency: DefaultConcurrency,
		Report: ReportConfig{
			Detailed: DefaultDetailedPath,
			Summary:  DefaultSummaryPath,
		},
	}
}

// WorkerCount returns the effective worker pool size.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return c.Concurrency
}

// RequestHeaders returns the headers to send with each probe. A non-empty
// UserAgent replaces any User-Agent header, whatever its case.
func (c *Config) RequestHeaders() map[string]string {
	headers := make(map[string]string, len(c.Headers)+1)
	maps.Copy(headers, c.Headers)
	if c.UserAgent != "" {
		maps.DeleteFunc(headers, func(name, _ string) bool {
			return strings.EqualFold(name, "User-Agent")
		})
		headers["User-Agent"] = c.UserAgent
	}
	return headers
}

// Normalize trims the targets, drops empty entries and prefixes https://
// to targets given without a scheme.
func (c *Config) Normalize() {
	targets := make([]string, 0, len(c.Targets))
	for _, t := range c.Targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "http://") && !strings.HasPrefix(t, "https://") {
			t = "https://" + t
		}
		targets = append(targets, t)
	}
	c.Targets = targets
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML strings.
// Bare numbers are read as seconds.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	return d.set(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	return d.set(value.Value)
}

func (d *Duration) set(s string) error {
	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
