package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"descriptai/internal/bulk"
	"descriptai/internal/domain"
	"descriptai/internal/infra"
	"descriptai/internal/metrics"
	"descriptai/internal/middleware"
)

// App carries the services the HTTP handlers call into.
type App struct {
	Config  *infra.Config
	Logger  infra.Logger
	Gate    *bulk.UploadGate
	Chunks  *bulk.ChunkProcessor
	Status  *bulk.StatusSync
	Credits *bulk.Credits
	Voices  *bulk.Voices
	Metrics *metrics.Metrics

	// Optional collaborators wired by the router.
	ChunkLimiter  middleware.Limiter
	ImageLimiter  middleware.Limiter
	CountryLookup middleware.CountryLookup
	Ping          func(ctx context.Context) error
	CachePing     func(ctx context.Context) error
	Started       time.Time
}

type errorPayload struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{"error": errorPayload{Code: code, Message: message}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// fail maps service errors onto the JSON error envelope. notFound is the
// message used for domain.ErrNotFound.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", notFound)
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, http.StatusBadRequest, "quota_exceeded", err.Error())
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusForbidden, "insufficient_credits", err.Error())
	case errors.As(err, &verr):
		a.json(w, http.StatusBadRequest, map[string]any{"error": errorPayload{Code: "bad_request", Message: verr.Message, Fields: verr.Fields}})
	case errors.Is(err, domain.ErrInvalidArgument):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		w.Header().Set("Retry-After", "5")
		a.error(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded, retry shortly")
	case errors.Is(err, context.Canceled):
		a.Logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request cancelled")
		a.error(w, http.StatusServiceUnavailable, "cancelled", "request cancelled")
	default:
		a.Logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "Internal server error")
	}
}
