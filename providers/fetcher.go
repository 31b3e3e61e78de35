package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lattice-labs/embed-router/internal/logging"
	"github.com/lattice-labs/embed-router/internal/metrics"
	"github.com/lattice-labs/embed-router/internal/normalize"
)

// logBodyLimit caps how much of an upstream response body ends up in logs
// and error messages.
const logBodyLimit = 512

// UpstreamError is a provider call that failed through the final retry
// attempt. It carries the last underlying failure.
type UpstreamError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s embedding call failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Fetcher issues embedding calls against one provider, retrying transient
// failures with linear backoff. One Fetch call produces one vector for one
// input string; batching across inputs is deliberately left to the caller.
type Fetcher struct {
	client   *http.Client
	provider Provider
	attempts int
	backoff  time.Duration
}

// NewFetcher creates a Fetcher. attempts below 1 is clamped to 1; backoff
// below zero is clamped to zero.
func NewFetcher(p Provider, attempts int, backoff time.Duration) *Fetcher {
	if attempts < 1 {
		attempts = 1
	}
	if backoff < 0 {
		backoff = 0
	}
	return &Fetcher{
		client:   &http.Client{},
		provider: p,
		attempts: attempts,
		backoff:  backoff,
	}
}

// embeddingCall is the wire request. Both Ollama's /api/embed and
// OpenAI-compatible endpoints accept this shape for a single input.
type embeddingCall struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// Fetch returns the embedding vector for one input string, merging headers
// into the outbound request. It retries every failure class (transport
// error, unparseable body, provider-reported error, unrecognized shape) up
// to the configured attempt limit, sleeping backoff*attempt between
// attempts. Cancelling ctx stops both in-flight calls and backoff sleeps.
func (f *Fetcher) Fetch(ctx context.Context, model, input string, headers http.Header) ([]float64, error) {
	log := logging.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		vec, err := f.attempt(ctx, model, input, headers)
		if err == nil {
			metrics.UpstreamAttempts.WithLabelValues(f.provider.Name(), "success").Inc()
			return vec, nil
		}
		lastErr = err
		metrics.UpstreamAttempts.WithLabelValues(f.provider.Name(), "error").Inc()
		log.Warn("embedding attempt failed",
			"provider", f.provider.Name(),
			"model", model,
			"attempt", attempt,
			"max_attempts", f.attempts,
			"error", err.Error(),
		)

		if attempt == f.attempts {
			break
		}
		// Linear backoff: base * attempt number, not exponential.
		select {
		case <-time.After(f.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, &UpstreamError{Provider: f.provider.Name(), Attempts: attempt, Err: ctx.Err()}
		}
	}

	return nil, &UpstreamError{Provider: f.provider.Name(), Attempts: f.attempts, Err: lastErr}
}

// attempt performs one upstream call and classifies the outcome.
func (f *Fetcher) attempt(ctx context.Context, model, input string, headers http.Header) ([]float64, error) {
	payload, err := json.Marshal(embeddingCall{Model: model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.provider.EmbeddingsURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, values := range headers {
		req.Header[name] = values
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("unparseable response (status %d): %s", resp.StatusCode, truncate(body))
	}

	// A provider-reported error wins over any vector-shaped field.
	if perr := normalize.CheckError(decoded); perr != nil {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, perr)
	}

	vec, ok := normalize.Extract(decoded)
	if !ok {
		return nil, fmt.Errorf("no embedding vector in response (status %d): %s", resp.StatusCode, truncate(body))
	}
	return vec, nil
}

func truncate(body []byte) string {
	if len(body) > logBodyLimit {
		return string(body[:logBodyLimit]) + "…"
	}
	return string(body)
}
