package main

import (
	"net/http"
)

type OnlineResponse struct {
	TeamID string   `json:"teamId"`
	Online []string `json:"online"`
}

// online reads the presence mirror the gateways maintain in Redis.
func (a *API) online(w http.ResponseWriter, r *http.Request) {
	teamID, _, ok := a.authorizeTeam(w, r)
	if !ok {
		return
	}
	if a.presence == nil {
		writeError(w, http.StatusServiceUnavailable, "Presence is not available")
		return
	}

	users, err := a.presence.Members(r.Context(), teamID)
	if err != nil {
		a.log.Error("Failed to fetch presence", "team_id", teamID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch presence")
		return
	}
	if users == nil {
		users = []string{}
	}
	writeJSON(w, http.StatusOK, OnlineResponse{TeamID: teamID, Online: users})
}
