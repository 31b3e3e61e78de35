package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	embedrouter "github.com/lattice-labs/embed-router"
	"github.com/lattice-labs/embed-router/internal/auth"
	"github.com/lattice-labs/embed-router/internal/logging"
	"github.com/lattice-labs/embed-router/internal/metrics"
	"github.com/lattice-labs/embed-router/internal/ratelimit"
	"github.com/lattice-labs/embed-router/internal/requestlog"
)

// newRouter builds the HTTP route table. The exact /v1/embeddings path is
// always dispatched to the embeddings handler; every other /v1/* and all
// /api/* paths fall through to the transparent proxy.
func newRouter(rt *embedrouter.Router, cfg embedrouter.Config, logs requestlog.Reader) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(corsMiddleware(cfg.CORSOrigins...))
	if cfg.RateLimitRPS > 0 {
		r.Use(rateLimitMiddleware(ratelimit.NewPerClient(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("embedrouter is running"))
	})

	// Health never touches the upstream provider.
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":       true,
			"provider": cfg.Provider,
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Post("/v1/embeddings", embeddingsHandler(rt))

	r.Get("/admin/requests", adminRequestsHandler(cfg.AdminToken, logs))

	// Registered last so explicit routes take precedence.
	proxy := proxyHandler(cfg)
	r.HandleFunc("/v1/*", proxy)
	r.HandleFunc("/api/*", proxy)

	return r
}

// embeddingsHandler handles POST /v1/embeddings.
func embeddingsHandler(rt *embedrouter.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embedrouter.EmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "invalid_request_error")
			return
		}

		resp, err := rt.Embed(r.Context(), req, r.Header)
		if err != nil {
			switch {
			case errors.Is(err, embedrouter.ErrBadRequest):
				writeError(w, http.StatusBadRequest, err.Error(), "invalid_request_error")
			case errors.Is(err, auth.ErrUnauthorized):
				writeError(w, http.StatusUnauthorized, err.Error(), "authentication_error")
			default:
				// Anything else is an exhausted upstream (*providers.UpstreamError).
				writeError(w, http.StatusBadGateway, err.Error(), "upstream_error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// adminRequestsHandler serves recent request-log entries. It requires the
// configured admin token; without a configured request log it returns 404.
func adminRequestsHandler(token string, logs requestlog.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			writeError(w, http.StatusNotFound, "admin API is not enabled", "invalid_request_error")
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "invalid admin token", "authentication_error")
			return
		}
		if logs == nil {
			writeError(w, http.StatusNotFound, "request log is not configured", "invalid_request_error")
			return
		}

		entries, err := logs.Recent(r.Context(), 100)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), "server_error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": entries})
	}
}

// rateLimitMiddleware rejects clients over their per-IP budget with 429.
func rateLimitMiddleware(limiter *ratelimit.PerClient) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}
			if !limiter.Allow(ip) {
				metrics.RateLimitRejections.Inc()
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "rate_limit_error")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes an OpenAI-compatible JSON error envelope.
func writeError(w http.ResponseWriter, status int, message, errType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errType,
		},
	})
}
