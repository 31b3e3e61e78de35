package embedrouter

import (
	"strings"
	"testing"
)

func clearRouterEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PROVIDER", "PROVIDER_BASE_URL", "API_KEY", "X_PAYMENT",
		"ROUTER_ATTEMPTS", "ROUTER_BACKOFF_MS", "PORT",
		"STARTUP_CHECK", "TEST_MODEL", "REQUIRE_API_KEY",
		"IGNORE_INCOMING_API_KEY", "LOG_LEVEL", "LOG_FORMAT",
		"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"ADMIN_TOKEN", "REQUEST_LOG_DRIVER", "REQUEST_LOG_DSN",
	} {
		t.Setenv(name, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearRouterEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error: %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q, want openai default", cfg.Provider)
	}
	if cfg.Attempts != DefaultAttempts {
		t.Errorf("Attempts = %d, want %d", cfg.Attempts, DefaultAttempts)
	}
	if cfg.BackoffMS != DefaultBackoffMS {
		t.Errorf("BackoffMS = %d, want %d", cfg.BackoffMS, DefaultBackoffMS)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %q, want %q", cfg.Port, DefaultPort)
	}
	if cfg.StartupCheck || cfg.RequireAPIKey || cfg.IgnoreIncomingAPIKey {
		t.Errorf("boolean flags default on: %+v", cfg)
	}
}

func TestFromEnvReadsValues(t *testing.T) {
	clearRouterEnv(t)
	t.Setenv("PROVIDER", "ollama")
	t.Setenv("PROVIDER_BASE_URL", "http://embeddings.internal:11434")
	t.Setenv("API_KEY", "sk-test")
	t.Setenv("X_PAYMENT", "pay-token")
	t.Setenv("ROUTER_ATTEMPTS", "5")
	t.Setenv("ROUTER_BACKOFF_MS", "50")
	t.Setenv("PORT", "9090")
	t.Setenv("STARTUP_CHECK", "true")
	t.Setenv("TEST_MODEL", "nomic-embed-text")
	t.Setenv("REQUIRE_API_KEY", "1")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error: %v", err)
	}
	if cfg.Provider != "ollama" || cfg.BaseURL != "http://embeddings.internal:11434" {
		t.Errorf("provider settings = %q/%q", cfg.Provider, cfg.BaseURL)
	}
	if cfg.Attempts != 5 || cfg.BackoffMS != 50 {
		t.Errorf("retry settings = %d/%d, want 5/50", cfg.Attempts, cfg.BackoffMS)
	}
	if !cfg.StartupCheck || cfg.TestModel != "nomic-embed-text" {
		t.Errorf("probe settings = %v/%q", cfg.StartupCheck, cfg.TestModel)
	}
	if !cfg.RequireAPIKey {
		t.Error("RequireAPIKey not parsed from 1")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v, want two trimmed origins", cfg.CORSOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("RateLimitRPS = %v, want 2.5", cfg.RateLimitRPS)
	}
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"ROUTER_ATTEMPTS", "three"},
		{"ROUTER_BACKOFF_MS", "0.5s"},
		{"STARTUP_CHECK", "yes please"},
		{"RATE_LIMIT_RPS", "fast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearRouterEnv(t)
			t.Setenv(tt.name, tt.value)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("FromEnv() accepted %s=%q", tt.name, tt.value)
			} else if !strings.Contains(err.Error(), tt.name) {
				t.Errorf("error %v does not name the offending variable", err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Provider: "ollama", Attempts: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() on valid config: %v", err)
	}

	tests := []struct {
		name string
		mod  func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "bedrock" }},
		{"openai without base url", func(c *Config) { c.Provider = "openai"; c.BaseURL = "" }},
		{"zero attempts", func(c *Config) { c.Attempts = 0 }},
		{"negative backoff", func(c *Config) { c.BackoffMS = -1 }},
		{"unknown request log driver", func(c *Config) { c.RequestLogDriver = "mysql" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mod(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() accepted %+v", cfg)
			}
		})
	}
}

func TestConfigValidateOpenAIWithBaseURL(t *testing.T) {
	cfg := Config{Provider: "openai", BaseURL: "https://api.example.com", Attempts: 1}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestAuthSettings(t *testing.T) {
	cfg := Config{
		APIKey:               "k",
		Payment:              "p",
		RequireAPIKey:        true,
		IgnoreIncomingAPIKey: true,
	}
	s := cfg.AuthSettings()
	if s.Key != "k" || s.Payment != "p" || !s.RequireKey || !s.IgnoreIncomingKey {
		t.Errorf("AuthSettings() = %+v, want all fields carried over", s)
	}
}
