package main

import (
	"encoding/json"
	"net/http"

	"github.com/mahaj/teamsync/pkg/auth"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/notify"
)

type NoticeRequest struct {
	Event        string          `json:"event"`
	Notification json.RawMessage `json:"notification"`
}

// reservedEvents are produced by the gateway itself and cannot be injected.
var reservedEvents = map[string]bool{
	model.EventOnlineStatus:   true,
	model.EventNewMessage:     true,
	model.EventMessageEdited:  true,
	model.EventMessageDeleted: true,
	model.EventMessageRead:    true,
	model.EventUserTyping:     true,
	model.EventMessageError:   true,
}

// publishNotice lets a mentor of the team push an announcement, such as a new
// suggestion, into the team room on every gateway.
func (a *API) publishNotice(w http.ResponseWriter, r *http.Request) {
	teamID, _, ok := a.authorizeTeam(w, r)
	if !ok {
		return
	}
	principal, _ := auth.PrincipalFrom(r.Context())
	team, err := a.oracle.Team(r.Context(), teamID)
	if err != nil {
		a.log.Error("Team lookup failed", "team_id", teamID, "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if !team.IsMentor(principal.ID) {
		writeError(w, http.StatusForbidden, "Only mentors can publish notices")
		return
	}
	if a.notices == nil {
		writeError(w, http.StatusServiceUnavailable, "Notices are not available")
		return
	}

	var req NoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if reservedEvents[req.Event] {
		writeError(w, http.StatusBadRequest, "Reserved event name")
		return
	}
	if len(req.Notification) == 0 || string(req.Notification) == "null" {
		writeError(w, http.StatusBadRequest, "event and notification are required")
		return
	}
	notice, err := notify.NewNotice(teamID, req.Event, req.Notification)
	if err != nil {
		writeError(w, http.StatusBadRequest, "event and notification are required")
		return
	}

	if err := a.notices.Publish(r.Context(), notice); err != nil {
		a.log.Error("Failed to publish notice", "team_id", teamID, "user_id", principal.ID, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to publish notice")
		return
	}
	writeJSON(w, http.StatusAccepted, notice)
}
