// Package probe performs the startup connectivity check: one embedding call
// against the configured provider to surface misconfiguration early.
// It only logs; a failed probe never blocks or aborts startup, preferring
// availability over failing fast on a provider that may come up later.
package probe

import (
	"context"
	"net/http"

	"github.com/lattice-labs/embed-router/internal/auth"
	"github.com/lattice-labs/embed-router/internal/logging"
	"github.com/lattice-labs/embed-router/providers"
)

// testInput is the fixed input sent by the probe.
const testInput = "connectivity check"

// Run executes the probe with the given test model. An empty model skips
// the probe with a warning, since the call could not succeed anyway.
func Run(ctx context.Context, f *providers.Fetcher, settings auth.Settings, model string) {
	log := logging.FromContext(ctx)
	if model == "" {
		log.Warn("startup check enabled but TEST_MODEL is empty, skipping probe")
		return
	}

	headers := auth.ResolveProxy(http.Header{}, settings)
	vec, err := f.Fetch(ctx, model, testInput, headers)
	if err != nil {
		log.Warn("startup probe failed, continuing anyway",
			"model", model,
			"error", err.Error(),
		)
		return
	}
	log.Info("startup probe succeeded", "model", model, "dimensions", len(vec))
}
