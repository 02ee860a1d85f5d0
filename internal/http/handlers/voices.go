package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"descriptai/internal/bulk"
)

const voiceNotFound = "Brand voice not found"

// maxVoiceBody covers five full writing samples with room for JSON escaping.
const maxVoiceBody = 64 << 10

func (a *App) ListVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := a.Voices.List(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err, voiceNotFound)
		return
	}
	a.json(w, http.StatusOK, voices)
}

func (a *App) GetVoice(w http.ResponseWriter, r *http.Request) {
	voice, err := a.Voices.Get(r.Context(), a.currentUserID(r), chi.URLParam(r, "voiceId"))
	if err != nil {
		a.fail(w, r, err, voiceNotFound)
		return
	}
	a.json(w, http.StatusOK, voice)
}

func (a *App) CreateVoice(w http.ResponseWriter, r *http.Request) {
	in, ok := a.decodeVoice(w, r)
	if !ok {
		return
	}
	voice, err := a.Voices.Create(r.Context(), a.currentUserID(r), in)
	if err != nil {
		a.fail(w, r, err, voiceNotFound)
		return
	}
	a.json(w, http.StatusCreated, voice)
}

func (a *App) UpdateVoice(w http.ResponseWriter, r *http.Request) {
	in, ok := a.decodeVoice(w, r)
	if !ok {
		return
	}
	voice, err := a.Voices.Update(r.Context(), a.currentUserID(r), chi.URLParam(r, "voiceId"), in)
	if err != nil {
		a.fail(w, r, err, voiceNotFound)
		return
	}
	a.json(w, http.StatusOK, voice)
}

func (a *App) DeleteVoice(w http.ResponseWriter, r *http.Request) {
	if err := a.Voices.Delete(r.Context(), a.currentUserID(r), chi.URLParam(r, "voiceId")); err != nil {
		a.fail(w, r, err, voiceNotFound)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *App) decodeVoice(w http.ResponseWriter, r *http.Request) (bulk.VoiceInput, bool) {
	var in bulk.VoiceInput
	r.Body = http.MaxBytesReader(w, r.Body, maxVoiceBody)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return in, false
	}
	return in, true
}
