package handlers

import (
	"context"
	"net/http"
	"time"

	"descriptai/internal/migrations"
)

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status        string            `json:"status"`
	Schema        string            `json:"schema"`
	UptimeSeconds int64             `json:"uptime_seconds,omitempty"`
	Checks        map[string]string `json:"checks"`
}

// Health reports dependency state. The database is required; the rate
// limit cache fails open, so losing it only degrades the service.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Schema: migrations.Version, Checks: map[string]string{}}
	if !a.Started.IsZero() {
		resp.UptimeSeconds = int64(time.Since(a.Started).Seconds())
	}
	code := http.StatusOK

	if a.Ping != nil {
		if err := a.Ping(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("health check: database unreachable")
			resp.Checks["database"] = "unreachable"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			resp.Checks["database"] = "ok"
		}
	}
	if a.CachePing != nil {
		if err := a.CachePing(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("health check: rate limit cache unreachable")
			resp.Checks["cache"] = "unreachable"
			resp.Status = "degraded"
		} else {
			resp.Checks["cache"] = "ok"
		}
	}
	a.json(w, code, resp)
}

// MetricsHandler serves the Prometheus registry.
func (a *App) MetricsHandler() http.Handler {
	return a.Metrics.Handler()
}
