package embedrouter

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lattice-labs/embed-router/internal/auth"
	"github.com/lattice-labs/embed-router/providers"
)

// Config holds every process-wide setting. It is loaded once at startup and
// treated as immutable afterwards; components receive it (or slices of it)
// explicitly instead of reading environment state at request time.
type Config struct {
	// Provider selects the upstream mode: "openai" or "ollama".
	Provider string `json:"provider" yaml:"provider"`
	// BaseURL is the upstream provider's root URL.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// APIKey is the provider credential forwarded per the resolver rules.
	APIKey string `json:"api_key" yaml:"api_key"`
	// Payment is the default X-Payment value when the client sends none.
	Payment string `json:"payment" yaml:"payment"`
	// Attempts is the upstream retry budget per input (>= 1).
	Attempts int `json:"attempts" yaml:"attempts"`
	// BackoffMS is the linear backoff base in milliseconds.
	BackoffMS int `json:"backoff_ms" yaml:"backoff_ms"`
	// Port is the listen port.
	Port string `json:"port" yaml:"port"`
	// StartupCheck runs one probe embedding call at serve start.
	StartupCheck bool `json:"startup_check" yaml:"startup_check"`
	// TestModel is the model used by the startup probe.
	TestModel string `json:"test_model" yaml:"test_model"`
	// RequireAPIKey rejects clients whose key does not match APIKey.
	RequireAPIKey bool `json:"require_api_key" yaml:"require_api_key"`
	// IgnoreIncomingAPIKey always forwards APIKey, discarding client keys.
	IgnoreIncomingAPIKey bool `json:"ignore_incoming_api_key" yaml:"ignore_incoming_api_key"`

	// LogLevel is debug/info/warn/error; LogFormat is json or text.
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	// CORSOrigins lists allowed origins; empty allows any.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`

	// RateLimitRPS enables per-IP rate limiting when > 0.
	RateLimitRPS   float64 `json:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst float64 `json:"rate_limit_burst" yaml:"rate_limit_burst"`

	// AdminToken protects the request-log admin endpoint.
	AdminToken string `json:"admin_token" yaml:"admin_token"`

	// RequestLogDriver is "sqlite", "postgres", or empty (disabled).
	RequestLogDriver string `json:"request_log_driver" yaml:"request_log_driver"`
	RequestLogDSN    string `json:"request_log_dsn" yaml:"request_log_dsn"`
}

// Defaults applied by FromEnv when the environment is silent.
const (
	DefaultAttempts  = 3
	DefaultBackoffMS = 200
	DefaultPort      = "8080"
)

// FromEnv builds a Config from the process environment. Malformed numeric
// or boolean values are reported as errors rather than silently defaulted.
func FromEnv() (Config, error) {
	cfg := Config{
		Provider:         envOr("PROVIDER", providers.ModeOpenAI),
		BaseURL:          os.Getenv("PROVIDER_BASE_URL"),
		APIKey:           os.Getenv("API_KEY"),
		Payment:          os.Getenv("X_PAYMENT"),
		Port:             envOr("PORT", DefaultPort),
		TestModel:        os.Getenv("TEST_MODEL"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        os.Getenv("LOG_FORMAT"),
		AdminToken:       os.Getenv("ADMIN_TOKEN"),
		RequestLogDriver: os.Getenv("REQUEST_LOG_DRIVER"),
		RequestLogDSN:    os.Getenv("REQUEST_LOG_DSN"),
	}

	var err error
	if cfg.Attempts, err = envInt("ROUTER_ATTEMPTS", DefaultAttempts); err != nil {
		return Config{}, err
	}
	if cfg.BackoffMS, err = envInt("ROUTER_BACKOFF_MS", DefaultBackoffMS); err != nil {
		return Config{}, err
	}
	if cfg.StartupCheck, err = envBool("STARTUP_CHECK"); err != nil {
		return Config{}, err
	}
	if cfg.RequireAPIKey, err = envBool("REQUIRE_API_KEY"); err != nil {
		return Config{}, err
	}
	if cfg.IgnoreIncomingAPIKey, err = envBool("IGNORE_INCOMING_API_KEY"); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS"); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = envFloat("RATE_LIMIT_BURST"); err != nil {
		return Config{}, err
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg, nil
}

// Validate reports configuration errors that would make the router
// unserveable.
func (c Config) Validate() error {
	switch c.Provider {
	case providers.ModeOpenAI, providers.ModeOllama:
	default:
		return fmt.Errorf("unknown provider %q (want %q or %q)", c.Provider, providers.ModeOpenAI, providers.ModeOllama)
	}
	if c.Provider == providers.ModeOpenAI && c.BaseURL == "" {
		return fmt.Errorf("PROVIDER_BASE_URL is required for the openai provider")
	}
	if c.Attempts < 1 {
		return fmt.Errorf("ROUTER_ATTEMPTS must be >= 1, got %d", c.Attempts)
	}
	if c.BackoffMS < 0 {
		return fmt.Errorf("ROUTER_BACKOFF_MS must be >= 0, got %d", c.BackoffMS)
	}
	switch c.RequestLogDriver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown request log driver %q (want sqlite or postgres)", c.RequestLogDriver)
	}
	return nil
}

// AuthSettings returns the credential-resolver view of this configuration.
func (c Config) AuthSettings() auth.Settings {
	return auth.Settings{
		Key:               c.APIKey,
		RequireKey:        c.RequireAPIKey,
		IgnoreIncomingKey: c.IgnoreIncomingAPIKey,
		Payment:           c.Payment,
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", name, v)
	}
	return n, nil
}

func envBool(name string) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", name, v)
	}
	return b, nil
}

func envFloat(name string) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", name, v)
	}
	return f, nil
}
