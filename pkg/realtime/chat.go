package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/store"
)

// Chat handles message events. Every change is persisted before it is
// broadcast, and nothing is broadcast when persistence fails.
type Chat struct {
	log      *slog.Logger
	messages store.MessageStore
	oracle   MembershipOracle
	rooms    Broadcaster
	now      func() time.Time
}

func NewChat(log *slog.Logger, messages store.MessageStore, oracle MembershipOracle, rooms Broadcaster) *Chat {
	return &Chat{
		log:      log,
		messages: messages,
		oracle:   oracle,
		rooms:    rooms,
		now:      time.Now,
	}
}

// Send persists a text message from conn and broadcasts it to the whole room,
// sender included.
func (c *Chat) Send(ctx context.Context, conn *Connection, teamID, text string) (model.ChatMessage, error) {
	text, err := normalizeText(text)
	if err != nil {
		return model.ChatMessage{}, err
	}
	if err := c.authorize(ctx, conn, teamID, "send messages"); err != nil {
		return model.ChatMessage{}, err
	}

	msg, err := c.messages.CreateMessage(ctx, model.ChatMessage{
		TeamID:     teamID,
		SenderID:   conn.UserID(),
		SenderName: conn.Principal.Name,
		Text:       text,
		Kind:       model.KindText,
		ReadBy:     []model.ReadReceipt{},
	})
	if err != nil {
		return model.ChatMessage{}, c.storeFailure("create message", err, "team_id", teamID)
	}

	c.rooms.Broadcast(teamID, model.EventNewMessage, msg)
	c.log.Debug("Message sent", "message_id", msg.ID, "team_id", teamID, "user_id", conn.UserID())
	return msg, nil
}

// MarkRead appends a read receipt for conn. A repeated mark is a no-op and
// broadcasts nothing; otherwise the receipt goes to everyone else in the room.
func (c *Chat) MarkRead(ctx context.Context, conn *Connection, messageID int64, teamID string) error {
	if err := c.authorize(ctx, conn, teamID, "read messages"); err != nil {
		return err
	}
	msg, err := c.messages.FindMessage(ctx, messageID)
	if err != nil {
		return c.storeFailure("find message", err, "message_id", messageID)
	}
	if msg.TeamID != teamID {
		return fmt.Errorf("%w: message %d", ErrNotFound, messageID)
	}
	if msg.IsReadBy(conn.UserID()) {
		return nil
	}

	receipt := model.ReadReceipt{
		UserID: conn.UserID(),
		Name:   conn.Principal.Name,
		ReadAt: c.now().UTC(),
	}
	_, added, err := c.messages.MarkRead(ctx, messageID, receipt)
	if err != nil {
		return c.storeFailure("mark read", err, "message_id", messageID)
	}
	if !added {
		return nil
	}

	c.rooms.BroadcastExcept(teamID, model.EventMessageRead, model.MessageRead{
		MessageID: msg.IDString(),
		TeamID:    teamID,
		ReadBy:    receipt,
	}, conn.ID)
	return nil
}

// Edit replaces the text of a message. Only its sender may edit it. The update
// goes to the message's own team, whatever team the client named.
func (c *Chat) Edit(ctx context.Context, conn *Connection, messageID int64, newText string) (model.ChatMessage, error) {
	text, err := normalizeText(newText)
	if err != nil {
		return model.ChatMessage{}, err
	}
	msg, err := c.messages.FindMessage(ctx, messageID)
	if err != nil {
		return model.ChatMessage{}, c.storeFailure("find message", err, "message_id", messageID)
	}
	if msg.SenderID != conn.UserID() {
		return model.ChatMessage{}, fmt.Errorf("%w: you can only edit your own messages", ErrAuthorization)
	}

	editedAt := c.now().UTC()
	msg.Text = text
	msg.IsEdited = true
	msg.EditedAt = &editedAt
	if err := c.messages.UpdateMessage(ctx, msg); err != nil {
		return model.ChatMessage{}, c.storeFailure("update message", err, "message_id", messageID)
	}

	c.rooms.Broadcast(msg.TeamID, model.EventMessageEdited, msg)
	return msg, nil
}

// Delete removes a message. Only its sender may delete it.
func (c *Chat) Delete(ctx context.Context, conn *Connection, messageID int64) error {
	msg, err := c.messages.FindMessage(ctx, messageID)
	if err != nil {
		return c.storeFailure("find message", err, "message_id", messageID)
	}
	if msg.SenderID != conn.UserID() {
		return fmt.Errorf("%w: you can only delete your own messages", ErrAuthorization)
	}
	if err := c.messages.DeleteMessage(ctx, messageID); err != nil {
		return c.storeFailure("delete message", err, "message_id", messageID)
	}

	c.rooms.Broadcast(msg.TeamID, model.EventMessageDeleted, model.MessageDeleted{
		MessageID: msg.IDString(),
		TeamID:    msg.TeamID,
	})
	return nil
}

// Typing relays a typing indicator to the rest of the room. It is not persisted
// and requires conn to have joined the room.
func (c *Chat) Typing(conn *Connection, teamID string, isTyping bool) error {
	if !conn.InRoom(teamID) {
		return fmt.Errorf("%w: not in team room %s", ErrAuthorization, teamID)
	}
	c.rooms.BroadcastExcept(teamID, model.EventUserTyping, model.UserTyping{
		TeamID:   teamID,
		UserID:   conn.UserID(),
		UserName: conn.Principal.Name,
		IsTyping: isTyping,
	}, conn.ID)
	return nil
}

func (c *Chat) authorize(ctx context.Context, conn *Connection, teamID, action string) error {
	rel, err := c.oracle.Relationship(ctx, teamID, conn.UserID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: team %s", ErrNotFound, teamID)
		}
		return c.storeFailure("team lookup", err, "team_id", teamID)
	}
	if !rel.IsPrincipal() {
		return fmt.Errorf("%w: you must be a member of this team to %s", ErrAuthorization, action)
	}
	return nil
}

func (c *Chat) storeFailure(op string, err error, attrs ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: message", ErrNotFound)
	}
	c.log.Error("Message store failure", append([]any{"op", op, "error", err}, attrs...)...)
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}

func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: message cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(text) > model.MaxMessageLength {
		return "", fmt.Errorf("%w: message cannot be more than %d characters", ErrValidation, model.MaxMessageLength)
	}
	return text, nil
}
