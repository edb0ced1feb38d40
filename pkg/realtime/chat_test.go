package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mahaj/teamsync/pkg/mocks"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChat_Send_Persists_Then_Broadcasts_To_Whole_Room(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()
	aliceConn, aliceSink := h.joined(t, alice, "T1")
	_, bobSink := h.joined(t, bob, "T1")
	resetAll(aliceSink, bobSink)

	msg, err := h.chat.Send(ctx, aliceConn, "T1", "  hello team  ")
	req.NoError(err)

	// the sender also receives its own message
	for _, sink := range []*recordingSink{aliceSink, bobSink} {
		got := decodeLast[model.ChatMessage](t, sink, model.EventNewMessage)
		req.Equal(msg.ID, got.ID)
		req.Equal("hello team", got.Text)
		req.Equal("alice", got.SenderID)
		req.Equal(model.KindText, got.Kind)
		req.Empty(got.ReadBy)
	}
	stored, err := h.store.FindMessage(ctx, msg.ID)
	req.NoError(err)
	req.Equal("hello team", stored.Text)
}

func TestChat_Send_Rejects_Invalid_Text(t *testing.T) {
	h := newHarness(t, nil)
	conn, sink := h.joined(t, alice, "T1")
	sink.reset()

	for name, text := range map[string]string{
		"empty":      "",
		"whitespace": "   \n\t",
		"too long":   strings.Repeat("é", model.MaxMessageLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			_, err := h.chat.Send(context.Background(), conn, "T1", text)
			req.ErrorIs(err, ErrValidation)
			req.Empty(sink.events())
		})
	}

	// exactly the limit is fine, counted in characters
	_, err := h.chat.Send(context.Background(), conn, "T1", strings.Repeat("é", model.MaxMessageLength))
	require.NoError(t, err)
}

func TestChat_Send_Requires_Principal(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()
	_, aliceSink := h.joined(t, alice, "T1")
	resetAll(aliceSink)
	eveConn, _ := h.connect(eve)

	_, err := h.chat.Send(ctx, eveConn, "T1", "let me in")

	req.ErrorIs(err, ErrAuthorization)
	req.Empty(aliceSink.events())
	unread, err := h.store.UnreadCount(ctx, "T1", "alice")
	req.NoError(err)
	req.Zero(unread)
}

func TestChat_Send_Unknown_Team(t *testing.T) {
	h := newHarness(t, nil)
	conn, _ := h.connect(alice)

	_, err := h.chat.Send(context.Background(), conn, "ghost", "hi")

	require.ErrorIs(t, err, ErrNotFound)
}

func TestChat_Send_Store_Failure_Broadcasts_Nothing(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockMessageStore(ctrl)
	oracle := mocks.NewMockMembershipOracle(ctrl)
	oracle.EXPECT().Relationship(gomock.Any(), "T1", "alice").Return(model.RelationLeader, nil)
	messages.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).Return(model.ChatMessage{}, errors.New("disk full"))

	log := discardLogger()
	router := NewRouter(log)
	sink := &recordingSink{}
	conn := NewConnection(alice, sink)
	router.Join(conn, "T1")
	chat := NewChat(log, messages, oracle, router)

	_, err := chat.Send(context.Background(), conn, "T1", "hello")

	req.ErrorIs(err, ErrStore)
	req.Equal(genericClientError, ClientError(err))
	req.NotContains(ClientError(err), "disk full")
	req.Empty(sink.events())
}

func TestChat_Send_Preserves_Per_Sender_Order(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	aliceConn, _ := h.joined(t, alice, "T1")
	_, bobSink := h.joined(t, bob, "T1")
	bobSink.reset()

	for i := range 20 {
		_, err := h.chat.Send(context.Background(), aliceConn, "T1", fmt.Sprintf("m%02d", i))
		req.NoError(err)
	}

	frames := bobSink.received(model.EventNewMessage)
	req.Len(frames, 20)
	for i := range 20 {
		got := decodeAt[model.ChatMessage](t, frames, i)
		req.Equal(fmt.Sprintf("m%02d", i), got.Text)
	}
}

func TestChat_Concurrent_Senders_Are_Seen_In_One_Order(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	aliceConn, aliceSink := h.joined(t, alice, "T1")
	bobConn, bobSink := h.joined(t, bob, "T1")
	miaConn, miaSink := h.joined(t, mia, "T1")
	resetAll(aliceSink, bobSink, miaSink)

	var wg sync.WaitGroup
	for _, conn := range []*Connection{aliceConn, bobConn, miaConn} {
		wg.Add(1)
		go func(conn *Connection) {
			defer wg.Done()
			for i := range 10 {
				_, _ = h.chat.Send(context.Background(), conn, "T1", fmt.Sprintf("%s-%d", conn.UserID(), i))
			}
		}(conn)
	}
	wg.Wait()

	order := func(sink *recordingSink) []string {
		frames := sink.received(model.EventNewMessage)
		texts := make([]string, 0, len(frames))
		for i := range frames {
			texts = append(texts, decodeAt[model.ChatMessage](t, frames, i).Text)
		}
		return texts
	}
	seen := order(aliceSink)
	req.Len(seen, 30)
	req.Equal(seen, order(bobSink))
	req.Equal(seen, order(miaSink))
}

func TestChat_MarkRead(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()
	aliceConn, aliceSink := h.joined(t, alice, "T1")
	bobConn, bobSink := h.joined(t, bob, "T1")
	msg, err := h.chat.Send(ctx, aliceConn, "T1", "read me")
	req.NoError(err)
	resetAll(aliceSink, bobSink)

	// When bob reads it
	req.NoError(h.chat.MarkRead(ctx, bobConn, msg.ID, "T1"))

	// Then alice gets the receipt and bob does not
	receipt := decodeLast[model.MessageRead](t, aliceSink, model.EventMessageRead)
	req.Equal(msg.IDString(), receipt.MessageID)
	req.Equal("T1", receipt.TeamID)
	req.Equal("bob", receipt.ReadBy.UserID)
	req.WithinDuration(time.Now(), receipt.ReadBy.ReadAt, time.Minute)
	req.Empty(bobSink.events())

	// When bob reads it again nothing changes and nothing is broadcast
	aliceSink.reset()
	req.NoError(h.chat.MarkRead(ctx, bobConn, msg.ID, "T1"))
	req.Empty(aliceSink.events())
	stored, err := h.store.FindMessage(ctx, msg.ID)
	req.NoError(err)
	req.Len(stored.ReadBy, 1)
}

func TestChat_MarkRead_Errors(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	aliceConn, _ := h.joined(t, alice, "T1")
	bobConn, _ := h.joined(t, bob, "T1")
	eveConn, _ := h.connect(eve)
	msg, err := h.chat.Send(ctx, aliceConn, "T1", "hello")
	require.NoError(t, err)

	tests := []struct {
		name string
		conn *Connection
		id   int64
		team string
		want error
	}{
		{name: "outsider", conn: eveConn, id: msg.ID, team: "T1", want: ErrAuthorization},
		{name: "unknown message", conn: bobConn, id: msg.ID + 1, team: "T1", want: ErrNotFound},
		{name: "message of another team", conn: bobConn, id: msg.ID, team: "T2", want: ErrNotFound},
		{name: "unknown team", conn: bobConn, id: msg.ID, team: "ghost", want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.chat.MarkRead(ctx, tt.conn, tt.id, tt.team)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestChat_MarkRead_Lost_Race_Broadcasts_Nothing(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockMessageStore(ctrl)
	oracle := mocks.NewMockMembershipOracle(ctrl)
	msg := model.ChatMessage{ID: 42, TeamID: "T1", SenderID: "alice", ReadBy: []model.ReadReceipt{}}
	oracle.EXPECT().Relationship(gomock.Any(), "T1", "bob").Return(model.RelationMember, nil)
	messages.EXPECT().FindMessage(gomock.Any(), int64(42)).Return(msg, nil)
	messages.EXPECT().MarkRead(gomock.Any(), int64(42), gomock.Any()).Return(msg, false, nil)

	log := discardLogger()
	router := NewRouter(log)
	aliceSink := &recordingSink{}
	router.Join(NewConnection(alice, aliceSink), "T1")
	chat := NewChat(log, messages, oracle, router)

	req.NoError(chat.MarkRead(context.Background(), NewConnection(bob, &recordingSink{}), 42, "T1"))
	req.Empty(aliceSink.events())
}

func TestChat_Edit(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()
	aliceConn, aliceSink := h.joined(t, alice, "T1")
	bobConn, bobSink := h.joined(t, bob, "T1")
	msg, err := h.chat.Send(ctx, aliceConn, "T1", "helo")
	req.NoError(err)
	resetAll(aliceSink, bobSink)

	// Bob may not edit alice's message
	_, err = h.chat.Edit(ctx, bobConn, msg.ID, "hijacked")
	req.ErrorIs(err, ErrAuthorization)
	req.Empty(aliceSink.events())

	// Alice may
	edited, err := h.chat.Edit(ctx, aliceConn, msg.ID, "hello")
	req.NoError(err)
	req.True(edited.IsEdited)
	req.NotNil(edited.EditedAt)

	for _, sink := range []*recordingSink{aliceSink, bobSink} {
		got := decodeLast[model.ChatMessage](t, sink, model.EventMessageEdited)
		req.Equal(msg.ID, got.ID)
		req.Equal("hello", got.Text)
		req.True(got.IsEdited)
	}
	stored, err := h.store.FindMessage(ctx, msg.ID)
	req.NoError(err)
	req.Equal("hello", stored.Text)
	req.True(stored.IsEdited)

	_, err = h.chat.Edit(ctx, aliceConn, msg.ID, " ")
	req.ErrorIs(err, ErrValidation)
	_, err = h.chat.Edit(ctx, aliceConn, msg.ID+100, "x")
	req.ErrorIs(err, ErrNotFound)
}

func TestChat_Delete(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()
	aliceConn, aliceSink := h.joined(t, alice, "T1")
	bobConn, bobSink := h.joined(t, bob, "T1")
	msg, err := h.chat.Send(ctx, aliceConn, "T1", "oops")
	req.NoError(err)
	resetAll(aliceSink, bobSink)

	req.ErrorIs(h.chat.Delete(ctx, bobConn, msg.ID), ErrAuthorization)
	req.Empty(bobSink.events())

	req.NoError(h.chat.Delete(ctx, aliceConn, msg.ID))
	for _, sink := range []*recordingSink{aliceSink, bobSink} {
		got := decodeLast[model.MessageDeleted](t, sink, model.EventMessageDeleted)
		req.Equal(model.MessageDeleted{MessageID: msg.IDString(), TeamID: "T1"}, got)
	}
	_, err = h.store.FindMessage(ctx, msg.ID)
	req.ErrorIs(err, store.ErrNotFound)

	req.ErrorIs(h.chat.Delete(ctx, aliceConn, msg.ID), ErrNotFound)
}

func TestChat_Typing(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	aliceConn, aliceSink := h.joined(t, alice, "T1")
	_, bobSink := h.joined(t, bob, "T1")
	eveConn, _ := h.connect(eve)
	resetAll(aliceSink, bobSink)

	req.NoError(h.chat.Typing(aliceConn, "T1", true))

	req.Empty(aliceSink.events())
	got := decodeLast[model.UserTyping](t, bobSink, model.EventUserTyping)
	req.Equal(model.UserTyping{TeamID: "T1", UserID: "alice", UserName: "Alice", IsTyping: true}, got)

	// typing into a room one has not joined goes nowhere
	bobSink.reset()
	req.ErrorIs(h.chat.Typing(eveConn, "T1", true), ErrAuthorization)
	req.Empty(bobSink.events())
}

func TestChat_Sent_Messages_Round_Trip_Through_Pagination(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()
	aliceConn, _ := h.joined(t, alice, "T1")
	bobConn, _ := h.joined(t, bob, "T1")

	sent := []struct {
		conn *Connection
		text string
	}{
		{aliceConn, "one"},
		{bobConn, "two"},
		{aliceConn, "three"},
	}
	for _, s := range sent {
		_, err := h.chat.Send(ctx, s.conn, "T1", s.text)
		req.NoError(err)
	}

	page, err := h.store.TeamMessages(ctx, "T1", store.DefaultPageSize, 0)
	req.NoError(err)
	req.Len(page, 3)
	// newest first
	for i, s := range sent {
		got := page[len(page)-1-i]
		req.Equal(s.text, got.Text)
		req.Equal(s.conn.UserID(), got.SenderID)
	}
}
