// Package embedrouter normalizes heterogeneous embedding-provider APIs
// behind a single OpenAI-compatible embeddings endpoint.
//
// The Router type is the main entry point: create one with New and serve
// embedding requests with Embed. It validates the request, resolves which
// credentials to forward, fetches one vector per input string strictly in
// order, and assembles an OpenAI-compatible response. Everything the router
// does not handle natively is meant to be forwarded verbatim to the
// provider by the transparent proxy in cmd/embedrouter.
package embedrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lattice-labs/embed-router/internal/auth"
	"github.com/lattice-labs/embed-router/internal/logging"
	"github.com/lattice-labs/embed-router/internal/metrics"
	"github.com/lattice-labs/embed-router/internal/requestlog"
	"github.com/lattice-labs/embed-router/providers"
)

// ErrBadRequest marks malformed client input. Specific validation failures
// wrap it, so HTTP handlers can map the whole class to 400 with errors.Is.
var ErrBadRequest = errors.New("bad request")

// EmbeddingRequest mirrors the OpenAI /v1/embeddings request schema.
// Input is either a single string or a list of strings; the model name is
// an opaque passthrough identifier, never validated against a known list.
type EmbeddingRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// Inputs normalizes Input to an ordered list of strings. A single string is
// wrapped; an absent, empty, or non-string input is a bad request.
func (r EmbeddingRequest) Inputs() ([]string, error) {
	switch v := r.Input.(type) {
	case string:
		return []string{v}, nil
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: input must not be empty", ErrBadRequest)
		}
		return v, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: input must not be empty", ErrBadRequest)
		}
		inputs := make([]string, len(v))
		for i, el := range v {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("%w: input[%d] is not a string", ErrBadRequest, i)
			}
			inputs[i] = s
		}
		return inputs, nil
	case nil:
		return nil, fmt.Errorf("%w: input is required", ErrBadRequest)
	default:
		return nil, fmt.Errorf("%w: input must be a string or a list of strings", ErrBadRequest)
	}
}

// Embedding holds a single embedding vector and its input position.
type Embedding struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

// EmbeddingResponse mirrors the OpenAI /v1/embeddings response schema.
type EmbeddingResponse struct {
	Object string      `json:"object"`
	Model  string      `json:"model"`
	Data   []Embedding `json:"data"`
}

// Router orchestrates embedding requests against one configured provider.
type Router struct {
	cfg      Config
	provider providers.Provider
	fetcher  *providers.Fetcher
	reqLog   requestlog.Writer
}

// New creates a Router for the configured provider.
func New(cfg Config) (*Router, error) {
	p, err := providers.New(cfg.Provider, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &Router{
		cfg:      cfg,
		provider: p,
		fetcher:  providers.NewFetcher(p, cfg.Attempts, time.Duration(cfg.BackoffMS)*time.Millisecond),
		reqLog:   requestlog.NoopWriter{},
	}, nil
}

// WithRequestLog attaches a request audit-log writer.
func (rt *Router) WithRequestLog(w requestlog.Writer) *Router {
	if w != nil {
		rt.reqLog = w
	}
	return rt
}

// Provider returns the configured provider.
func (rt *Router) Provider() providers.Provider { return rt.provider }

// Fetcher returns the router's embedding fetcher, shared with the startup
// probe so both exercise identical retry behavior.
func (rt *Router) Fetcher() *providers.Fetcher { return rt.fetcher }

// Embed serves one embeddings request. Inputs are processed strictly
// sequentially: each input's upstream call, including all of its retries,
// completes before the next input's call begins. This avoids provider-side
// request aggregation and token-limit errors from concurrent submission;
// parallelizing this loop is a behavior change, not an optimization.
// Any single input's final failure aborts the whole request.
func (rt *Router) Embed(ctx context.Context, req EmbeddingRequest, incoming http.Header) (*EmbeddingResponse, error) {
	start := time.Now()
	log := logging.FromContext(ctx)

	if req.Model == "" {
		rt.finish(ctx, req.Model, 0, 0, "bad_request", "model is required", start)
		return nil, fmt.Errorf("%w: model is required", ErrBadRequest)
	}
	inputs, err := req.Inputs()
	if err != nil {
		rt.finish(ctx, req.Model, 0, 0, "bad_request", err.Error(), start)
		return nil, err
	}

	outbound, err := auth.Resolve(incoming, rt.cfg.AuthSettings())
	if err != nil {
		rt.finish(ctx, req.Model, len(inputs), 0, "unauthorized", "", start)
		return nil, err
	}

	data := make([]Embedding, 0, len(inputs))
	for i, input := range inputs {
		vec, err := rt.fetcher.Fetch(ctx, req.Model, input, outbound)
		if err != nil {
			var ue *providers.UpstreamError
			attempts := 0
			if errors.As(err, &ue) {
				attempts = ue.Attempts
			}
			log.Error("embeddings request failed",
				"model", req.Model,
				"input_index", i,
				"inputs", len(inputs),
				"latency_ms", time.Since(start).Milliseconds(),
				"error", err.Error(),
			)
			rt.finish(ctx, req.Model, len(inputs), attempts, "upstream_error", err.Error(), start)
			return nil, err
		}
		data = append(data, Embedding{Object: "embedding", Embedding: vec, Index: i})
	}

	latency := time.Since(start)
	metrics.EmbeddingsDuration.WithLabelValues(rt.provider.Name(), req.Model).Observe(latency.Seconds())
	metrics.EmbeddingInputs.Observe(float64(len(inputs)))
	log.Info("embeddings request completed",
		"model", req.Model,
		"provider", rt.provider.Name(),
		"inputs", len(inputs),
		"latency_ms", latency.Milliseconds(),
	)
	rt.finish(ctx, req.Model, len(inputs), 0, "success", "", start)

	return &EmbeddingResponse{Object: "list", Model: req.Model, Data: data}, nil
}

// finish records the request outcome in metrics and the audit log.
// Audit entries never contain inputs or credential values.
func (rt *Router) finish(ctx context.Context, model string, inputs, attempts int, outcome, errMsg string, start time.Time) {
	metrics.EmbeddingsTotal.WithLabelValues(outcome).Inc()
	entry := requestlog.Entry{
		TraceID:      logging.TraceIDFromContext(ctx),
		Model:        model,
		Provider:     rt.provider.Name(),
		Inputs:       inputs,
		Attempts:     attempts,
		Outcome:      outcome,
		ErrorMessage: errMsg,
		LatencyMS:    time.Since(start).Milliseconds(),
	}
	if err := rt.reqLog.Write(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("request log write failed", "error", err.Error())
	}
}
