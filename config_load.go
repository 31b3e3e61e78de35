package embedrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// configSchema validates config files before they are decoded, so a typo'd
// field or wrong type fails with a precise message instead of a silent zero.
const configSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"provider": {"type": "string", "enum": ["openai", "ollama"]},
		"base_url": {"type": "string"},
		"api_key": {"type": "string"},
		"payment": {"type": "string"},
		"attempts": {"type": "integer", "minimum": 1},
		"backoff_ms": {"type": "integer", "minimum": 0},
		"port": {"type": "string"},
		"startup_check": {"type": "boolean"},
		"test_model": {"type": "string"},
		"require_api_key": {"type": "boolean"},
		"ignore_incoming_api_key": {"type": "boolean"},
		"log_level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
		"log_format": {"type": "string", "enum": ["json", "text"]},
		"cors_origins": {"type": "array", "items": {"type": "string"}},
		"rate_limit_rps": {"type": "number", "minimum": 0},
		"rate_limit_burst": {"type": "number", "minimum": 0},
		"admin_token": {"type": "string"},
		"request_log_driver": {"type": "string", "enum": ["sqlite", "postgres"]},
		"request_log_dsn": {"type": "string"}
	}
}`

var compiledConfigSchema = jsonschema.MustCompileString("config.schema.json", configSchema)

// LoadConfigFile reads, schema-validates, and parses a config file.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var doc any
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
		// Round-trip through JSON so the schema validator sees the same
		// value types a JSON file would produce.
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("normalizing YAML config: %w", err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("normalizing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	if err := compiledConfigSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Overlay returns base with every non-zero field of file applied on top.
// The environment provides the base; a config file overrides it.
func Overlay(base Config, file *Config) Config {
	if file == nil {
		return base
	}
	if file.Provider != "" {
		base.Provider = file.Provider
	}
	if file.BaseURL != "" {
		base.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		base.APIKey = file.APIKey
	}
	if file.Payment != "" {
		base.Payment = file.Payment
	}
	if file.Attempts != 0 {
		base.Attempts = file.Attempts
	}
	if file.BackoffMS != 0 {
		base.BackoffMS = file.BackoffMS
	}
	if file.Port != "" {
		base.Port = file.Port
	}
	if file.StartupCheck {
		base.StartupCheck = true
	}
	if file.TestModel != "" {
		base.TestModel = file.TestModel
	}
	if file.RequireAPIKey {
		base.RequireAPIKey = true
	}
	if file.IgnoreIncomingAPIKey {
		base.IgnoreIncomingAPIKey = true
	}
	if file.LogLevel != "" {
		base.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		base.LogFormat = file.LogFormat
	}
	if len(file.CORSOrigins) > 0 {
		base.CORSOrigins = file.CORSOrigins
	}
	if file.RateLimitRPS != 0 {
		base.RateLimitRPS = file.RateLimitRPS
	}
	if file.RateLimitBurst != 0 {
		base.RateLimitBurst = file.RateLimitBurst
	}
	if file.AdminToken != "" {
		base.AdminToken = file.AdminToken
	}
	if file.RequestLogDriver != "" {
		base.RequestLogDriver = file.RequestLogDriver
	}
	if file.RequestLogDSN != "" {
		base.RequestLogDSN = file.RequestLogDSN
	}
	return base
}
