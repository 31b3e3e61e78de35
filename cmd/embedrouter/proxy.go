package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	embedrouter "github.com/lattice-labs/embed-router"
	"github.com/lattice-labs/embed-router/internal/auth"
	"github.com/lattice-labs/embed-router/internal/logging"
	"github.com/lattice-labs/embed-router/internal/metrics"
)

// passthroughHeaders are the request headers copied to the provider
// verbatim. Everything else is dropped; auth and payment headers are
// rebuilt by the credential resolver.
var passthroughHeaders = []string{
	"Accept",
	"Accept-Encoding",
	"Accept-Language",
	"User-Agent",
}

// proxyHandler returns an http.HandlerFunc that transparently forwards any
// unhandled /api/* or /v1/* request to the configured provider, preserving
// method, path, query string, and (for body-carrying methods) the body.
// The provider's status code and body pass through verbatim.
func proxyHandler(cfg embedrouter.Config) http.HandlerFunc {
	target, err := url.Parse(cfg.BaseURL)
	if err != nil || cfg.BaseURL == "" {
		return func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusBadGateway, "provider base URL is not configured", "upstream_error")
		}
	}

	settings := cfg.AuthSettings()

	proxy := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.Host = target.Host
			req.URL.Path = strings.TrimRight(target.Path, "/") + "/" + strings.TrimLeft(req.URL.Path, "/")
			// Query string is reattached unchanged via req.URL.RawQuery.

			// Rebuild the outbound header set from scratch: resolver-made
			// auth and payment headers, content type, and the allow-list.
			out := auth.ResolveProxy(req.Header, settings)
			if ct := req.Header.Get("Content-Type"); ct != "" {
				out.Set("Content-Type", ct)
			}
			for _, name := range passthroughHeaders {
				if v := req.Header.Get(name); v != "" {
					out.Set(name, v)
				}
			}
			req.Header = out

			// GET and HEAD carry no body by convention.
			if req.Method == http.MethodGet || req.Method == http.MethodHead {
				req.Body = http.NoBody
				req.ContentLength = 0
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			metrics.ProxyRequests.WithLabelValues(resp.Request.Method, statusClass(resp.StatusCode)).Inc()
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			metrics.ProxyRequests.WithLabelValues(r.Method, "error").Inc()
			logging.FromContext(r.Context()).Error("proxy request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err.Error(),
			)
			writeError(w, http.StatusBadGateway, "upstream request failed: "+err.Error(), "upstream_error")
		},
	}

	return proxy.ServeHTTP
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
