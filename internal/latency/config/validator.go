package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Fields returns the names of the fields that failed validation.
func (e *ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		fields = append(fields, err.Field)
	}
	return fields
}

// Validate checks the constraints a run depends on.
//
// Returns nil if valid, or a *ValidationErrors containing all violations.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if len(c.Targets) == 0 {
		errs.Add("targets", "at least one target is required")
	}

	seen := make(map[string]int, len(c.Targets))
	for i, target := range c.Targets {
		field := fmt.Sprintf("targets[%d]", i)
		validateTarget(field, target, errs)

		if first, dup := seen[target]; dup {
			errs.Add(field, fmt.Sprintf("duplicate of targets[%d]", first))
		} else {
			seen[target] = i
		}
	}

	if c.Samples <= 0 {
		errs.Add("samples", "samples must be greater than 0")
	}
	if c.Timeout <= 0 {
		errs.Add("timeout", "timeout must be greater than 0")
	}
	if c.Concurrency <= 0 {
		errs.Add("concurrency", "concurrency must be at least 1")
	}
	if c.Workers < 0 {
		errs.Add("workers", "workers cannot be negative")
	}

	for key := range c.Headers {
		if strings.TrimSpace(key) == "" {
			errs.Add("headers", "header names cannot be empty")
			break
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateTarget(field, target string, errs *ValidationErrors) {
	u, err := url.Parse(target)
	if err != nil {
		errs.Add(field, fmt.Sprintf("invalid URL: %v", err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add(field, "target URLs must start with 'https://' or 'http://'")
		return
	}
	if u.Host == "" {
		errs.Add(field, "target URL has no host")
	}
}
