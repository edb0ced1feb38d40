package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/snowflake"
	"github.com/mahaj/teamsync/pkg/store"
	"github.com/stretchr/testify/require"
)

var (
	alice = model.Principal{ID: "alice", Name: "Alice", Role: model.RoleStudent}
	bob   = model.Principal{ID: "bob", Name: "Bob", Role: model.RoleStudent}
	mia   = model.Principal{ID: "mia", Name: "Mia", Role: model.RoleMentor}
	eve   = model.Principal{ID: "eve", Name: "Eve", Role: model.RoleStudent}

	teamOne = model.Team{ID: "T1", Name: "Rocket", LeaderID: "alice", MemberIDs: []string{"bob"}, MentorIDs: []string{"mia"}, IsActive: true}
	teamTwo = model.Team{ID: "T2", Name: "Comet", LeaderID: "bob", MemberIDs: []string{"eve"}, IsActive: true}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSink struct {
	mu     sync.Mutex
	frames []model.Envelope
	closed bool
	fail   error
}

func (s *recordingSink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if s.closed {
		return ErrConnectionClosed
	}
	var env model.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return err
	}
	s.frames = append(s.frames, env)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *recordingSink) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		names = append(names, f.Event)
	}
	return names
}

// received returns the payloads of every frame with the given event name.
func (s *recordingSink) received(event string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []json.RawMessage
	for _, f := range s.frames {
		if f.Event == event {
			out = append(out, f.Data)
		}
	}
	return out
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
}

func decodeLast[T any](t *testing.T, sink *recordingSink, event string) T {
	t.Helper()
	frames := sink.received(event)
	require.NotEmpty(t, frames, "no %s frame received", event)
	var out T
	require.NoError(t, json.Unmarshal(frames[len(frames)-1], &out))
	return out
}

type harness struct {
	store      *store.BadgerStore
	registry   *Registry
	router     *Router
	presence   *Presence
	chat       *Chat
	dispatcher *Dispatcher
}

func newHarness(t *testing.T, observer PresenceObserver) *harness {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ids, err := snowflake.NewGenerator(3)
	require.NoError(t, err)

	log := discardLogger()
	s := store.NewBadgerStore(db, ids, log)
	ctx := context.Background()
	for _, team := range []model.Team{teamOne, teamTwo} {
		require.NoError(t, s.SaveTeam(ctx, team))
	}

	oracle := store.NewOracle(s)
	registry := NewRegistry(log)
	router := NewRouter(log)
	presence := NewPresence(log, registry, router, oracle, observer)
	chat := NewChat(log, s, oracle, router)
	return &harness{
		store:      s,
		registry:   registry,
		router:     router,
		presence:   presence,
		chat:       chat,
		dispatcher: NewDispatcher(log, presence, chat),
	}
}

func (h *harness) connect(p model.Principal) (*Connection, *recordingSink) {
	sink := &recordingSink{}
	conn := NewConnection(p, sink)
	h.presence.Connect(conn)
	return conn, sink
}

// joined connects p and places it in teamID.
func (h *harness) joined(t *testing.T, p model.Principal, teamID string) (*Connection, *recordingSink) {
	t.Helper()
	conn, sink := h.connect(p)
	require.NoError(t, h.presence.Join(context.Background(), conn, teamID))
	return conn, sink
}

func (h *harness) dispatch(t *testing.T, conn *Connection, event string, payload any) {
	t.Helper()
	frame, err := model.Encode(event, payload)
	require.NoError(t, err)
	h.dispatcher.Dispatch(context.Background(), conn, frame)
}

func resetAll(sinks ...*recordingSink) {
	for _, s := range sinks {
		s.reset()
	}
}

func decodeAt[T any](t *testing.T, frames []json.RawMessage, i int) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(frames[i], &out))
	return out
}
