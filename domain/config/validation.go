package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates client configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) ValidationErrors {
	v.errors = nil

	v.validateTransport(config)
	v.validateResilience(config)
	v.validateCache(config)
	v.validatePersistence(config)
	v.validateLogging(config)
	v.validateObservability(config)
	v.validateInvalidation(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateTransport(config *Config) {
	if config.Transport.BaseURL == "" {
		v.addError("transport.base_url", "base_url is required")
	} else if !strings.HasPrefix(config.Transport.BaseURL, "http://") &&
		!strings.HasPrefix(config.Transport.BaseURL, "https://") {
		v.addError("transport.base_url", fmt.Sprintf("invalid base URL: %s", config.Transport.BaseURL))
	}

	if config.Transport.Timeout < 0 {
		v.addError("transport.timeout", "timeout must be non-negative")
	}
	if config.Transport.MaxBodySize < 0 {
		v.addError("transport.max_body_size", "max_body_size must be non-negative")
	}
}

func (v *Validator) validateResilience(config *Config) {
	// Validate retry
	if config.Resilience.Retry.Enabled {
		if config.Resilience.Retry.MaxAttempts <= 0 {
			v.addError("resilience.retry.max_attempts", "max_attempts must be positive when enabled")
		}
		if config.Resilience.Retry.Multiplier < 1 {
			v.addError("resilience.retry.multiplier", "multiplier must be >= 1")
		}
	}

	// Validate circuit breaker
	if config.Resilience.CircuitBreaker.Enabled {
		if config.Resilience.CircuitBreaker.Threshold <= 0 {
			v.addError("resilience.circuit_breaker.threshold", "threshold must be positive when enabled")
		}
	}

	// Validate bulkhead
	if config.Resilience.Bulkhead.Enabled {
		if config.Resilience.Bulkhead.MaxConcurrent <= 0 {
			v.addError("resilience.bulkhead.max_concurrent", "max_concurrent must be positive when enabled")
		}
	}

	// Validate rate limit
	if config.Resilience.RateLimit.Enabled {
		if config.Resilience.RateLimit.Rate <= 0 {
			v.addError("resilience.rate_limit.rate", "rate must be positive when enabled")
		}
		if config.Resilience.RateLimit.Burst <= 0 {
			v.addError("resilience.rate_limit.burst", "burst must be positive when enabled")
		}
	}
}

func (v *Validator) validateCache(config *Config) {
	if config.Cache.GCIdle < 0 {
		v.addError("cache.gc_idle", "gc_idle must be non-negative")
	}
	if config.Cache.GCInterval < 0 {
		v.addError("cache.gc_interval", "gc_interval must be non-negative")
	}
	if (config.Cache.GCIdle > 0) != (config.Cache.GCInterval > 0) {
		v.addError("cache.gc_idle", "gc_idle and gc_interval must be set together")
	}
	if config.Cache.FetchTimeout < 0 {
		v.addError("cache.fetch_timeout", "fetch_timeout must be non-negative")
	}
}

func (v *Validator) validatePersistence(config *Config) {
	if !config.Persistence.Enabled {
		return
	}

	validBackends := map[string]bool{
		"filesystem": true, "badger": true, "redis": true, "sqlite": true,
	}
	if !validBackends[config.Persistence.Backend] {
		v.addError("persistence.backend", fmt.Sprintf("invalid backend: %s", config.Persistence.Backend))
		return
	}

	switch config.Persistence.Backend {
	case "filesystem", "badger", "sqlite":
		if config.Persistence.Path == "" {
			v.addError("persistence.path", fmt.Sprintf("path is required for %s backend", config.Persistence.Backend))
		}
	case "redis":
		if config.Persistence.Address == "" {
			v.addError("persistence.address", "address is required for redis backend")
		}
	}
}

func (v *Validator) validateLogging(config *Config) {
	if config.Logging.Level != "" {
		validLevels := map[string]bool{
			"trace": true, "debug": true, "info": true, "warn": true, "error": true,
		}
		if !validLevels[strings.ToLower(config.Logging.Level)] {
			v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
		}
	}

	if config.Logging.Format != "" {
		validFormats := map[string]bool{
			"console": true, "json": true,
		}
		if !validFormats[strings.ToLower(config.Logging.Format)] {
			v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
		}
	}
}

func (v *Validator) validateObservability(config *Config) {
	if config.Observability.Tracing.Exporter != "" {
		validExporters := map[string]bool{
			"otlp": true, "stdout": true, "noop": true,
		}
		if !validExporters[config.Observability.Tracing.Exporter] {
			v.addError("observability.tracing.exporter", fmt.Sprintf("invalid exporter: %s", config.Observability.Tracing.Exporter))
		}
	}

	if config.Observability.Tracing.Enabled &&
		config.Observability.Tracing.Exporter == "otlp" &&
		config.Observability.Tracing.Endpoint == "" {
		v.addError("observability.tracing.endpoint", "endpoint is required for otlp exporter")
	}

	if config.Observability.Tracing.SampleRate < 0 || config.Observability.Tracing.SampleRate > 1 {
		v.addError("observability.tracing.sample_rate", "sample_rate must be between 0.0 and 1.0")
	}
}

func (v *Validator) validateInvalidation(config *Config) {
	for name, prefixes := range config.Invalidation {
		if strings.TrimSpace(name) == "" {
			v.addError("invalidation", "mutation name is required")
			continue
		}
		if len(prefixes) == 0 {
			v.addError(fmt.Sprintf("invalidation.%s", name), "at least one key prefix is required")
		}
		for i, prefix := range prefixes {
			if strings.TrimSpace(prefix) == "" {
				v.addError(fmt.Sprintf("invalidation.%s[%d]", name, i), "key prefix cannot be empty")
			}
		}
	}
}
