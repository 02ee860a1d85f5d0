package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"descriptai/internal/domain"
)

type statusUpdateRequest struct {
	Status       domain.JobStatus `json:"status"`
	ErrorMessage *string          `json:"error_message"`
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	job, err := a.Status.GetStatus(r.Context(), userID, chi.URLParam(r, "jobId"))
	if err != nil {
		a.fail(w, r, err, jobNotFound)
		return
	}
	a.json(w, http.StatusOK, job)
}

func (a *App) UpdateJobStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Status.SetFinalStatus(r.Context(), userID, chi.URLParam(r, "jobId"), req.Status, req.ErrorMessage); err != nil {
		a.fail(w, r, err, jobNotFound)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *App) JobDescriptions(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	items, err := a.Status.ListDescriptions(r.Context(), userID, chi.URLParam(r, "jobId"))
	if err != nil {
		a.fail(w, r, err, jobNotFound)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
