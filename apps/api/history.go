package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/mahaj/teamsync/pkg/auth"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/notify"
	"github.com/mahaj/teamsync/pkg/store"
)

const tokenTTL = 24 * time.Hour

type PresenceReader interface {
	Members(ctx context.Context, teamID string) ([]string, error)
}

type NoticePublisher interface {
	Publish(ctx context.Context, notices ...notify.Notice) error
}

// API serves the REST side of team chat. presence and notices may be nil, in
// which case their endpoints answer 503.
type API struct {
	log          *slog.Logger
	messages     store.MessageStore
	users        store.UserStore
	oracle       *store.Oracle
	verifier     *auth.Verifier
	presence     PresenceReader
	notices      NoticePublisher
	historyLimit int
}

func (a *API) Routes(gate *auth.Gate) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", a.login)
	mux.Handle("GET /teams/{teamId}/messages", gate.Middleware(http.HandlerFunc(a.history)))
	mux.Handle("GET /teams/{teamId}/unread-count", gate.Middleware(http.HandlerFunc(a.unreadCount)))
	mux.Handle("PUT /teams/{teamId}/read", gate.Middleware(http.HandlerFunc(a.markRead)))
	mux.Handle("GET /teams/{teamId}/online", gate.Middleware(http.HandlerFunc(a.online)))
	mux.Handle("POST /teams/{teamId}/notices", gate.Middleware(http.HandlerFunc(a.publishNotice)))
	return CORSMiddleware(mux)
}

type historyResponse struct {
	TeamID   string              `json:"teamId"`
	Messages []model.ChatMessage `json:"messages"`
	Limit    int                 `json:"limit"`
	Skip     int                 `json:"skip"`
}

// history returns a page of team messages in chronological order. Pages are
// counted from the newest message.
func (a *API) history(w http.ResponseWriter, r *http.Request) {
	teamID, _, ok := a.authorizeTeam(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", a.historyLimit)
	skip := queryInt(r, "skip", 0)
	limit, skip = store.ClampPage(limit, skip)

	messages, err := a.messages.TeamMessages(r.Context(), teamID, limit, skip)
	if err != nil {
		a.log.Error("Failed to load history", "team_id", teamID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}
	slices.Reverse(messages)
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, historyResponse{TeamID: teamID, Messages: messages, Limit: limit, Skip: skip})
}

type LoginRequest struct {
	UserID string `json:"userId"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// login issues a token for a known user. Development only: there is no password.
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if _, err := a.users.FindUser(r.Context(), req.UserID); err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	token, err := a.verifier.Issue(req.UserID, tokenTTL)
	if err != nil {
		a.log.Error("Failed to issue token", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// authorizeTeam resolves the caller's relationship with the team in the path
// and writes the error response when there is none.
func (a *API) authorizeTeam(w http.ResponseWriter, r *http.Request) (string, model.Relationship, bool) {
	teamID := r.PathValue("teamId")
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return "", model.RelationNone, false
	}
	rel, err := a.oracle.Relationship(r.Context(), teamID, principal.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Team not found")
		return "", model.RelationNone, false
	case err != nil:
		a.log.Error("Team lookup failed", "team_id", teamID, "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return "", model.RelationNone, false
	case !rel.IsPrincipal():
		writeError(w, http.StatusForbidden, "Access denied")
		return "", model.RelationNone, false
	}
	return teamID, rel, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
