package handlers

import "net/http"

type creditsResponse struct {
	CreditsRemaining int    `json:"credits_remaining"`
	PlanType         string `json:"plan_type"`
}

func (a *App) UserCredits(w http.ResponseWriter, r *http.Request) {
	profile, err := a.Credits.Balance(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err, "Profile not found")
		return
	}
	a.json(w, http.StatusOK, creditsResponse{CreditsRemaining: profile.CreditsRemaining, PlanType: string(profile.Plan)})
}
