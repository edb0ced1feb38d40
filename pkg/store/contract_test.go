package store

import (
	"context"
	"testing"
	"time"

	"github.com/mahaj/teamsync/pkg/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// runBackendContract exercises the behaviour every backend must share.
func runBackendContract(t *testing.T, newBackend func(t *testing.T) Backend) {
	ctx := context.Background()

	t.Run("create assigns id and createdAt", func(t *testing.T) {
		req := require.New(t)
		s := newBackend(t)

		before := time.Now().Add(-time.Second)
		msg, err := s.CreateMessage(ctx, model.ChatMessage{TeamID: "T1", SenderID: "alice", SenderName: "Alice", Text: "hello"})
		req.NoError(err)

		req.NotZero(msg.ID)
		req.True(msg.CreatedAt.After(before))
		req.Equal(model.KindText, msg.Kind)
		req.NotNil(msg.ReadBy)
		req.Empty(msg.ReadBy)
		req.False(msg.IsEdited)

		found, err := s.FindMessage(ctx, msg.ID)
		req.NoError(err)
		req.Equal(msg.Text, found.Text)
		req.Equal(msg.SenderID, found.SenderID)
		req.Equal(msg.SenderName, found.SenderName)
	})

	t.Run("find unknown message", func(t *testing.T) {
		_, err := newBackend(t).FindMessage(ctx, 404)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("team messages are paginated newest first", func(t *testing.T) {
		req := require.New(t)
		s := newBackend(t)
		var sent []model.ChatMessage
		for _, text := range []string{"one", "two", "three", "four", "five"} {
			msg, err := s.CreateMessage(ctx, model.ChatMessage{TeamID: "T1", SenderID: "alice", Text: text})
			req.NoError(err)
			sent = append(sent, msg)
		}
		_, err := s.CreateMessage(ctx, model.ChatMessage{TeamID: "T2", SenderID: "bob", Text: "elsewhere"})
		req.NoError(err)

		page, err := s.TeamMessages(ctx, "T1", 2, 0)
		req.NoError(err)
		req.Equal([]string{"five", "four"}, texts(page))

		page, err = s.TeamMessages(ctx, "T1", 2, 2)
		req.NoError(err)
		req.Equal([]string{"three", "two"}, texts(page))

		page, err = s.TeamMessages(ctx, "T1", 10, 4)
		req.NoError(err)
		req.Equal([]string{"one"}, texts(page))
		req.Equal(sent[0].ID, page[0].ID)

		page, err = s.TeamMessages(ctx, "T9", 10, 0)
		req.NoError(err)
		req.Empty(page)
	})

	t.Run("update rewrites the editable fields", func(t *testing.T) {
		req := require.New(t)
		s := newBackend(t)
		msg, err := s.CreateMessage(ctx, model.ChatMessage{TeamID: "T1", SenderID: "alice", Text: "hello"})
		req.NoError(err)

		editedAt := time.Now().UTC().Truncate(time.Millisecond)
		msg.Text = "hello world"
		msg.IsEdited = true
		msg.EditedAt = &editedAt
		req.NoError(s.UpdateMessage(ctx, msg))

		found, err := s.FindMessage(ctx, msg.ID)
		req.NoError(err)
		req.Equal("hello world", found.Text)
		req.True(found.IsEdited)
		req.NotNil(found.EditedAt)
		req.True(editedAt.Equal(*found.EditedAt))

		req.ErrorIs(s.UpdateMessage(ctx, model.ChatMessage{ID: 404, TeamID: "T1", Text: "x"}), ErrNotFound)
	})

	t.Run("mark read is idempotent per user", func(t *testing.T) {
		req := require.New(t)
		s := newBackend(t)
		msg, err := s.CreateMessage(ctx, model.ChatMessage{TeamID: "T1", SenderID: "alice", Text: "hello"})
		req.NoError(err)
		at := time.Now().UTC().Truncate(time.Millisecond)

		updated, added, err := s.MarkRead(ctx, msg.ID, model.ReadReceipt{UserID: "bob", Name: "Bob", ReadAt: at})
		req.NoError(err)
		req.True(added)
		req.Len(updated.ReadBy, 1)

		updated, added, err = s.MarkRead(ctx, msg.ID, model.ReadReceipt{UserID: "bob", Name: "Bob", ReadAt: at.Add(time.Minute)})
		req.NoError(err)
		req.False(added)
		req.Len(updated.ReadBy, 1)

		found, err := s.FindMessage(ctx, msg.ID)
		req.NoError(err)
		req.Len(found.ReadBy, 1)
		req.Equal("bob", found.ReadBy[0].UserID)
		req.True(at.Equal(found.ReadBy[0].ReadAt))

		_, _, err = s.MarkRead(ctx, 404, model.ReadReceipt{UserID: "bob"})
		req.ErrorIs(err, ErrNotFound)
	})

	t.Run("delete is a hard delete", func(t *testing.T) {
		req := require.New(t)
		s := newBackend(t)
		msg, err := s.CreateMessage(ctx, model.ChatMessage{TeamID: "T1", SenderID: "alice", Text: "bye"})
		req.NoError(err)

		req.NoError(s.DeleteMessage(ctx, msg.ID))

		_, err = s.FindMessage(ctx, msg.ID)
		req.ErrorIs(err, ErrNotFound)
		page, err := s.TeamMessages(ctx, "T1", 10, 0)
		req.NoError(err)
		req.Empty(page)
		req.ErrorIs(s.DeleteMessage(ctx, msg.ID), ErrNotFound)
	})

	t.Run("unread excludes own and already read messages", func(t *testing.T) {
		req := require.New(t)
		s := newBackend(t)
		own, err := s.CreateMessage(ctx, model.ChatMessage{TeamID: "T1", SenderID: "bob", Text: "mine"})
		req.NoError(err)
		read, err := s.CreateMessage(ctx, model.ChatMessage{TeamID: "T1", SenderID: "alice", Text: "seen"})
		req.NoError(err)
		_, err = s.CreateMessage(ctx, model.ChatMessage{TeamID: "T1", SenderID: "alice", Text: "fresh"})
		req.NoError(err)
		_, _, err = s.MarkRead(ctx, read.ID, model.ReadReceipt{UserID: "bob", ReadAt: time.Now().UTC()})
		req.NoError(err)

		count, err := s.UnreadCount(ctx, "T1", "bob")
		req.NoError(err)
		req.Equal(1, count)

		unread, err := s.UnreadMessages(ctx, "T1", "bob")
		req.NoError(err)
		req.Equal([]string{"fresh"}, texts(unread))
		req.NotContains(texts(unread), own.Text)
	})

	t.Run("teams and users round trip", func(t *testing.T) {
		req := require.New(t)
		s := newBackend(t)
		team := model.Team{ID: "T1", Name: "Rockets", LeaderID: "alice", MemberIDs: []string{"bob"}, MentorIDs: []string{"mia"}, IsActive: true}
		user := model.Principal{ID: "alice", Name: "Alice", Email: "alice@example.com", Role: model.RoleStudent}

		req.NoError(s.SaveTeam(ctx, team))
		req.NoError(s.SaveUser(ctx, user))

		foundTeam, err := s.FindTeam(ctx, "T1")
		req.NoError(err)
		req.Equal(team, foundTeam)
		foundUser, err := s.FindUser(ctx, "alice")
		req.NoError(err)
		req.Equal(user, foundUser)

		_, err = s.FindTeam(ctx, "nope")
		req.ErrorIs(err, ErrNotFound)
		_, err = s.FindUser(ctx, "nope")
		req.ErrorIs(err, ErrNotFound)
	})
}

func texts(messages []model.ChatMessage) []string {
	return lo.Map(messages, func(m model.ChatMessage, _ int) string { return m.Text })
}
