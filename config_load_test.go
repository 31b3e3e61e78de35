package embedrouter

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := writeConfigFile(t, "router.yaml", `
provider: ollama
base_url: http://localhost:11434
attempts: 4
backoff_ms: 100
startup_check: true
test_model: nomic-embed-text
cors_origins:
  - https://app.example
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error: %v", err)
	}
	if cfg.Provider != "ollama" || cfg.BaseURL != "http://localhost:11434" {
		t.Errorf("provider settings = %q/%q", cfg.Provider, cfg.BaseURL)
	}
	if cfg.Attempts != 4 || cfg.BackoffMS != 100 {
		t.Errorf("retry settings = %d/%d, want 4/100", cfg.Attempts, cfg.BackoffMS)
	}
	if !cfg.StartupCheck || cfg.TestModel != "nomic-embed-text" {
		t.Errorf("probe settings = %v/%q", cfg.StartupCheck, cfg.TestModel)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://app.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := writeConfigFile(t, "router.json", `{
		"provider": "openai",
		"base_url": "https://api.example.com",
		"port": "9100",
		"rate_limit_rps": 1.5
	}`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Port != "9100" || cfg.RateLimitRPS != 1.5 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoadConfigFileRejectsUnknownField(t *testing.T) {
	path := writeConfigFile(t, "router.yaml", "provider: ollama\nretries: 3\n")
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("LoadConfigFile() accepted an unknown field")
	}
}

func TestLoadConfigFileRejectsWrongType(t *testing.T) {
	path := writeConfigFile(t, "router.yaml", "attempts: lots\n")
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("LoadConfigFile() accepted a non-integer attempts value")
	}
}

func TestLoadConfigFileRejectsUnknownProvider(t *testing.T) {
	path := writeConfigFile(t, "router.json", `{"provider": "bedrock"}`)
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("LoadConfigFile() accepted an unknown provider")
	}
}

func TestLoadConfigFileUnsupportedExtension(t *testing.T) {
	path := writeConfigFile(t, "router.toml", "provider = 'ollama'\n")
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("LoadConfigFile() accepted a .toml file")
	}
}

func TestOverlay(t *testing.T) {
	base := Config{
		Provider:  "openai",
		BaseURL:   "https://api.example.com",
		APIKey:    "env-key",
		Attempts:  3,
		BackoffMS: 200,
		Port:      "8080",
	}
	file := &Config{
		Provider: "ollama",
		BaseURL:  "http://localhost:11434",
		Attempts: 5,
	}
	got := Overlay(base, file)
	if got.Provider != "ollama" || got.BaseURL != "http://localhost:11434" || got.Attempts != 5 {
		t.Errorf("overridden fields not applied: %+v", got)
	}
	// Fields the file leaves zero keep the environment's values.
	if got.APIKey != "env-key" || got.BackoffMS != 200 || got.Port != "8080" {
		t.Errorf("base fields clobbered: %+v", got)
	}
}

func TestOverlayNilFile(t *testing.T) {
	base := Config{Provider: "ollama", Attempts: 2}
	got := Overlay(base, nil)
	if got.Provider != "ollama" || got.Attempts != 2 {
		t.Errorf("Overlay(base, nil) = %+v, want base unchanged", got)
	}
}
