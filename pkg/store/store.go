//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package store

import (
	"context"
	"errors"

	"github.com/mahaj/teamsync/pkg/model"
)

var ErrNotFound = errors.New("store: not found")

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// MessageStore persists team chat messages.
type MessageStore interface {
	// CreateMessage assigns the id and createdAt and returns the stored message.
	CreateMessage(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error)
	FindMessage(ctx context.Context, id int64) (model.ChatMessage, error)
	// TeamMessages returns a page of the team's messages, newest first.
	TeamMessages(ctx context.Context, teamID string, limit, skip int) ([]model.ChatMessage, error)
	// UpdateMessage rewrites the editable fields (text, isEdited, editedAt).
	UpdateMessage(ctx context.Context, msg model.ChatMessage) error
	// MarkRead appends a receipt unless the user already has one and reports
	// whether a receipt was added.
	MarkRead(ctx context.Context, id int64, receipt model.ReadReceipt) (model.ChatMessage, bool, error)
	DeleteMessage(ctx context.Context, id int64) error
	// UnreadMessages lists team messages not sent by userID and not yet read by them.
	UnreadMessages(ctx context.Context, teamID, userID string) ([]model.ChatMessage, error)
	UnreadCount(ctx context.Context, teamID, userID string) (int, error)
}

type TeamStore interface {
	FindTeam(ctx context.Context, teamID string) (model.Team, error)
	SaveTeam(ctx context.Context, team model.Team) error
}

type UserStore interface {
	FindUser(ctx context.Context, userID string) (model.Principal, error)
	SaveUser(ctx context.Context, user model.Principal) error
}

// ClampPage applies the default and maximum page size and rejects negative skips.
func ClampPage(limit, skip int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}
