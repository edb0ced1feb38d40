package realtime

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/samber/lo"
)

// Sink delivers encoded frames to one client. Send must not block: the router
// calls it while holding its lock.
type Sink interface {
	Send(frame []byte) error
	Close() error
}

// Connection is the server side of one authenticated socket.
type Connection struct {
	ID        string
	Principal model.Principal

	sink Sink

	mu    sync.Mutex
	rooms map[string]struct{}
}

func NewConnection(principal model.Principal, sink Sink) *Connection {
	return &Connection{
		ID:        uuid.NewString(),
		Principal: principal,
		sink:      sink,
		rooms:     make(map[string]struct{}),
	}
}

func (c *Connection) UserID() string {
	return c.Principal.ID
}

// Emit sends one event to this connection only.
func (c *Connection) Emit(event string, payload any) error {
	frame, err := model.Encode(event, payload)
	if err != nil {
		return err
	}
	return c.sink.Send(frame)
}

func (c *Connection) Close() error {
	return c.sink.Close()
}

// Rooms returns the joined team ids, sorted.
func (c *Connection) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := lo.Keys(c.rooms)
	slices.Sort(rooms)
	return rooms
}

func (c *Connection) InRoom(teamID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[teamID]
	return ok
}

func (c *Connection) addRoom(teamID string) {
	c.mu.Lock()
	c.rooms[teamID] = struct{}{}
	c.mu.Unlock()
}

func (c *Connection) removeRoom(teamID string) {
	c.mu.Lock()
	delete(c.rooms, teamID)
	c.mu.Unlock()
}

func (c *Connection) entry(isLeader bool) model.RosterEntry {
	return model.RosterEntry{
		UserID:   c.Principal.ID,
		Name:     c.Principal.Name,
		Role:     c.Principal.Role,
		IsLeader: isLeader,
	}
}
