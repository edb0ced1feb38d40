package model

import (
	"slices"
	"strconv"
	"time"
)

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindFile   MessageKind = "file"
	KindSystem MessageKind = "system"
)

// MaxMessageLength is counted in characters, not bytes.
const MaxMessageLength = 1000

type ReadReceipt struct {
	UserID string    `json:"user"`
	Name   string    `json:"name,omitempty"`
	ReadAt time.Time `json:"readAt"`
}

// ChatMessage is a persisted team chat message. ID is a snowflake, so ordering
// by ID within a team matches ordering by CreatedAt.
type ChatMessage struct {
	ID         int64         `json:"id,string"`
	TeamID     string        `json:"teamId"`
	SenderID   string        `json:"senderId"`
	SenderName string        `json:"senderName,omitempty"`
	Text       string        `json:"message"`
	Kind       MessageKind   `json:"messageType"`
	FileURL    string        `json:"fileUrl,omitempty"`
	FileName   string        `json:"fileName,omitempty"`
	IsEdited   bool          `json:"isEdited"`
	EditedAt   *time.Time    `json:"editedAt,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	ReadBy     []ReadReceipt `json:"readBy"`
}

func (m ChatMessage) IsReadBy(userID string) bool {
	return slices.ContainsFunc(m.ReadBy, func(r ReadReceipt) bool {
		return r.UserID == userID
	})
}

// AddReceipt appends a receipt unless the user already has one.
// It reports whether the message changed.
func (m *ChatMessage) AddReceipt(r ReadReceipt) bool {
	if m.IsReadBy(r.UserID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, r)
	return true
}

// Normalize makes the zero values safe to serialize: readBy is always a list.
func (m *ChatMessage) Normalize() {
	if m.ReadBy == nil {
		m.ReadBy = []ReadReceipt{}
	}
	if m.Kind == "" {
		m.Kind = KindText
	}
}

func (m ChatMessage) IDString() string {
	return strconv.FormatInt(m.ID, 10)
}

func ParseMessageID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
