// Package health serves the liveness and readiness probe.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/strata-gate/internal/http/response"
	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Handler serves GET /healthz.
type Handler struct {
	log     *slog.Logger
	checks  map[string]Check
	timeout time.Duration
}

// New creates a Handler running checks, keyed by dependency name.
func New(log *slog.Logger, checks map[string]Check) *Handler {
	return &Handler{log: log, checks: checks, timeout: 2 * time.Second}
}

// ServeHTTP godoc
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /healthz [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("dependency unhealthy", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Response{Status: response.StatusError, Error: "dependency unavailable", Data: status})
		return
	}
	render.JSON(w, r, response.StatusOKWithData(status))
}
