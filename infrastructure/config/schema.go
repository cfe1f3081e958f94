package config

import (
	"encoding/json"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	MinLength            *int                   `json:"minLength,omitempty"`
	MaxLength            *int                   `json:"maxLength,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	Format               string                 `json:"format,omitempty"`
	Ref                  string                 `json:"$ref,omitempty"`
	Definitions          map[string]*JSONSchema `json:"$defs,omitempty"`
	OneOf                []*JSONSchema          `json:"oneOf,omitempty"`
	AnyOf                []*JSONSchema          `json:"anyOf,omitempty"`
	AllOf                []*JSONSchema          `json:"allOf,omitempty"`
}

// GenerateSchema generates a JSON Schema for the client configuration.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/querykit/querykit-config.schema.json",
		Title:       "Client Configuration",
		Description: "Configuration schema for the querykit client",
		Type:        "object",
		Required:    []string{"transport"},
		Properties: map[string]*JSONSchema{
			"name": {
				Type:        "string",
				Description: "A human-readable name for this configuration",
			},
			"version": {
				Type:        "string",
				Description: "The configuration schema version",
				Default:     "1",
			},
			"transport":     generateTransportSchema(),
			"resilience":    generateResilienceSchema(),
			"cache":         generateCacheSchema(),
			"persistence":   generatePersistenceSchema(),
			"logging":       generateLoggingSchema(),
			"observability": generateObservabilitySchema(),
			"invalidation": {
				Type:        "object",
				Description: "Maps mutation names to the key prefixes they invalidate",
				AdditionalProperties: &JSONSchema{
					Type:        "array",
					Description: "Key prefixes touched by this mutation",
					Items: &JSONSchema{
						Type: "string",
					},
				},
			},
		},
	}
}

func generateTransportSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "HTTP transport settings",
		Required:    []string{"base_url"},
		Properties: map[string]*JSONSchema{
			"base_url": {
				Type:        "string",
				Description: "API root URL",
				Format:      "uri",
			},
			"timeout": {
				Type:        "string",
				Description: "Per-request timeout (e.g., '30s', '1m')",
				Format:      "duration",
				Default:     "30s",
			},
			"headers": {
				Type:                 "object",
				Description:          "Headers sent with every request",
				AdditionalProperties: &JSONSchema{Type: "string"},
			},
			"max_body_size": {
				Type:        "integer",
				Description: "Maximum response body size in bytes",
				Minimum:     floatPtr(0),
			},
			"user_agent": {
				Type:        "string",
				Description: "Overrides the default User-Agent header",
			},
		},
	}
}

func generateResilienceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Resilience settings",
		Properties: map[string]*JSONSchema{
			"timeout": {
				Type:        "string",
				Description: "Default guarded-call timeout (e.g., '30s', '1m')",
				Format:      "duration",
			},
			"retry": {
				Type:        "object",
				Description: "Retry behavior for idempotent requests",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: false,
					},
					"max_attempts": {
						Type:    "integer",
						Minimum: floatPtr(1),
						Default: 3,
					},
					"initial_delay": {
						Type:    "string",
						Format:  "duration",
						Default: "100ms",
					},
					"max_delay": {
						Type:   "string",
						Format: "duration",
					},
					"multiplier": {
						Type:    "number",
						Minimum: floatPtr(1),
						Default: 2.0,
					},
				},
			},
			"circuit_breaker": {
				Type:        "object",
				Description: "Circuit breaker behavior",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: false,
					},
					"threshold": {
						Type:        "integer",
						Description: "Failures before opening",
						Minimum:     floatPtr(1),
						Default:     5,
					},
					"timeout": {
						Type:        "string",
						Description: "How long circuit stays open",
						Format:      "duration",
						Default:     "30s",
					},
				},
			},
			"bulkhead": {
				Type:        "object",
				Description: "Bulkhead behavior",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: false,
					},
					"max_concurrent": {
						Type:        "integer",
						Description: "Maximum concurrent requests",
						Minimum:     floatPtr(1),
						Default:     10,
					},
				},
			},
			"rate_limit": {
				Type:        "object",
				Description: "Rate limiting configuration",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: false,
					},
					"rate": {
						Type:        "integer",
						Description: "Requests per second",
						Minimum:     floatPtr(1),
					},
					"burst": {
						Type:        "integer",
						Description: "Maximum burst size",
						Minimum:     floatPtr(1),
					},
				},
			},
		},
	}
}

func generateCacheSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Query store settings",
		Properties: map[string]*JSONSchema{
			"gc_idle": {
				Type:        "string",
				Description: "Evict entries unread for this long (0 disables)",
				Format:      "duration",
			},
			"gc_interval": {
				Type:        "string",
				Description: "How often the janitor sweeps",
				Format:      "duration",
			},
			"fetch_timeout": {
				Type:        "string",
				Description: "Per-fetch timeout",
				Format:      "duration",
			},
		},
	}
}

func generatePersistenceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Snapshot persistence settings",
		Properties: map[string]*JSONSchema{
			"enabled": {
				Type:        "boolean",
				Description: "Enable snapshot persistence",
				Default:     false,
			},
			"backend": {
				Type:        "string",
				Description: "Snapshot store backend",
				Enum:        []string{"filesystem", "badger", "redis", "sqlite"},
			},
			"path": {
				Type:        "string",
				Description: "File or directory path for filesystem, badger, and sqlite backends",
			},
			"address": {
				Type:        "string",
				Description: "Redis server address",
			},
			"password": {
				Type:        "string",
				Description: "Redis password",
			},
			"db": {
				Type:        "integer",
				Description: "Redis database index",
				Minimum:     floatPtr(0),
			},
		},
	}
}

func generateLoggingSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Logging settings",
		Properties: map[string]*JSONSchema{
			"level": {
				Type:        "string",
				Description: "Minimum log level",
				Enum:        []string{"trace", "debug", "info", "warn", "error"},
				Default:     "info",
			},
			"format": {
				Type:        "string",
				Description: "Log output format",
				Enum:        []string{"console", "json"},
				Default:     "console",
			},
		},
	}
}

func generateObservabilitySchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Tracing and metrics settings",
		Properties: map[string]*JSONSchema{
			"service_name": {
				Type:        "string",
				Description: "Service name reported on spans",
			},
			"tracing": {
				Type:        "object",
				Description: "Span export settings",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: false,
					},
					"exporter": {
						Type:        "string",
						Description: "Span exporter",
						Enum:        []string{"otlp", "stdout", "noop"},
					},
					"endpoint": {
						Type:        "string",
						Description: "OTLP collector address",
					},
					"insecure": {
						Type:        "boolean",
						Description: "Disable TLS to the collector",
						Default:     false,
					},
					"sample_rate": {
						Type:        "number",
						Description: "Trace sampling rate",
						Minimum:     floatPtr(0),
						Maximum:     floatPtr(1),
						Default:     1.0,
					},
				},
			},
			"metrics": {
				Type:        "object",
				Description: "Metrics settings",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: false,
					},
				},
			},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	schema := GenerateSchema()
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
