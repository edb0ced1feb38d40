package model

import "encoding/json"

// Client to server events.
const (
	EventJoinTeam      = "join-team"
	EventLeaveTeam     = "leave-team"
	EventSendMessage   = "send-message"
	EventMarkRead      = "mark-message-read"
	EventEditMessage   = "edit-message"
	EventDeleteMessage = "delete-message"
	EventTyping        = "typing"
)

// Server to client events.
const (
	EventOnlineStatus   = "online-status-update"
	EventNewMessage     = "new-message"
	EventMessageEdited  = "message-edited"
	EventMessageDeleted = "message-deleted"
	EventMessageRead    = "message-read"
	EventUserTyping     = "user-typing"
	EventMessageError   = "message-error"
)

// Envelope is the frame exchanged over the socket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

type TeamRef struct {
	TeamID string `json:"teamId" validate:"required"`
}

type SendMessage struct {
	TeamID  string `json:"teamId" validate:"required"`
	Message string `json:"message"`
}

type MarkRead struct {
	MessageID string `json:"messageId" validate:"required,numeric"`
	TeamID    string `json:"teamId" validate:"required"`
}

type EditMessage struct {
	MessageID  string `json:"messageId" validate:"required,numeric"`
	NewMessage string `json:"newMessage"`
	TeamID     string `json:"teamId,omitempty"`
}

type DeleteMessage struct {
	MessageID string `json:"messageId" validate:"required,numeric"`
	TeamID    string `json:"teamId,omitempty"`
}

type Typing struct {
	TeamID   string `json:"teamId" validate:"required"`
	IsTyping bool   `json:"isTyping"`
}

type OnlineStatusUpdate struct {
	TeamID        string        `json:"teamId"`
	OnlineMembers []RosterEntry `json:"onlineMembers,omitempty"`
	OnlineMentors []RosterEntry `json:"onlineMentors,omitempty"`
	UserJoined    *RosterEntry  `json:"userJoined,omitempty"`
	UserLeft      *RosterEntry  `json:"userLeft,omitempty"`
}

type MessageDeleted struct {
	MessageID string `json:"messageId"`
	TeamID    string `json:"teamId"`
}

type MessageRead struct {
	MessageID string      `json:"messageId"`
	TeamID    string      `json:"teamId"`
	ReadBy    ReadReceipt `json:"readBy"`
}

type UserTyping struct {
	TeamID   string `json:"teamId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

type MessageError struct {
	Error string `json:"error"`
}
