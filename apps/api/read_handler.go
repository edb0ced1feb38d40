package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mahaj/teamsync/pkg/auth"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/notify"
	"github.com/mahaj/teamsync/pkg/store"
)

type ReadRequest struct {
	MessageIDs []string `json:"messageIds"`
}

type ReadResponse struct {
	TeamID string `json:"teamId"`
	Marked int    `json:"marked"`
}

type UnreadResponse struct {
	TeamID      string `json:"teamId"`
	UnreadCount int    `json:"unreadCount"`
}

func (a *API) unreadCount(w http.ResponseWriter, r *http.Request) {
	teamID, _, ok := a.authorizeTeam(w, r)
	if !ok {
		return
	}
	principal, _ := auth.PrincipalFrom(r.Context())
	n, err := a.messages.UnreadCount(r.Context(), teamID, principal.ID)
	if err != nil {
		a.log.Error("Failed to count unread messages", "team_id", teamID, "user_id", principal.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to count unread messages")
		return
	}
	writeJSON(w, http.StatusOK, UnreadResponse{TeamID: teamID, UnreadCount: n})
}

// markRead records receipts for the listed messages, or for every unread
// message of the team when the body names none. Messages of other teams and
// unknown ids are skipped. New receipts are announced through the notice bus.
func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	teamID, _, ok := a.authorizeTeam(w, r)
	if !ok {
		return
	}
	principal, _ := auth.PrincipalFrom(r.Context())

	var req ReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	targets, err := a.readTargets(r, teamID, principal.ID, req.MessageIDs)
	if err != nil {
		a.log.Error("Failed to resolve messages to mark", "team_id", teamID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to mark messages as read")
		return
	}

	receipt := model.ReadReceipt{UserID: principal.ID, Name: principal.Name, ReadAt: time.Now().UTC()}
	var notices []notify.Notice
	for _, msg := range targets {
		_, added, err := a.messages.MarkRead(r.Context(), msg.ID, receipt)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			a.log.Error("Failed to mark message as read", "message_id", msg.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to mark messages as read")
			return
		}
		if !added {
			continue
		}
		notice, err := notify.NewNotice(teamID, model.EventMessageRead, model.MessageRead{
			MessageID: msg.IDString(),
			TeamID:    teamID,
			ReadBy:    receipt,
		})
		if err == nil {
			notices = append(notices, notice)
		}
	}

	if a.notices != nil && len(notices) > 0 {
		if err := a.notices.Publish(r.Context(), notices...); err != nil {
			a.log.Warn("Failed to announce read receipts", "team_id", teamID, "count", len(notices), "error", err)
		}
	}
	writeJSON(w, http.StatusOK, ReadResponse{TeamID: teamID, Marked: len(notices)})
}

func (a *API) readTargets(r *http.Request, teamID, userID string, rawIDs []string) ([]model.ChatMessage, error) {
	if len(rawIDs) == 0 {
		return a.messages.UnreadMessages(r.Context(), teamID, userID)
	}
	targets := make([]model.ChatMessage, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := model.ParseMessageID(raw)
		if err != nil {
			continue
		}
		msg, err := a.messages.FindMessage(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if msg.TeamID == teamID {
			targets = append(targets, msg)
		}
	}
	return targets, nil
}
