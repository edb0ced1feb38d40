package realtime

import (
	"log/slog"
	"sync"

	"github.com/mahaj/teamsync/pkg/model"
)

// Broadcaster delivers one event to every connection in a team room.
type Broadcaster interface {
	Broadcast(teamID, event string, payload any) int
	BroadcastExcept(teamID, event string, payload any, exceptConnID string) int
}

// Router tracks room membership per team. A broadcast holds the write lock for
// the whole fan-out, so every member of a room observes the same event order and
// no broadcast interleaves with a join or leave.
type Router struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Connection
	log   *slog.Logger
}

var _ Broadcaster = (*Router)(nil)

func NewRouter(log *slog.Logger) *Router {
	return &Router{
		rooms: make(map[string]map[string]*Connection),
		log:   log,
	}
}

// Join adds conn to the team room. It reports false if conn was already there.
func (r *Router) Join(conn *Connection, teamID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[teamID]
	if !ok {
		members = make(map[string]*Connection)
		r.rooms[teamID] = members
	}
	if _, joined := members[conn.ID]; joined {
		return false
	}
	members[conn.ID] = conn
	conn.addRoom(teamID)
	return true
}

// Leave removes conn from the team room. It reports false if conn was not there.
func (r *Router) Leave(conn *Connection, teamID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[teamID]
	if !ok {
		return false
	}
	if _, joined := members[conn.ID]; !joined {
		return false
	}
	delete(members, conn.ID)
	if len(members) == 0 {
		delete(r.rooms, teamID)
	}
	conn.removeRoom(teamID)
	return true
}

func (r *Router) Members(teamID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]*Connection, 0, len(r.rooms[teamID]))
	for _, conn := range r.rooms[teamID] {
		members = append(members, conn)
	}
	return members
}

func (r *Router) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Broadcast sends the event to every connection in the room and returns how many
// accepted it.
func (r *Router) Broadcast(teamID, event string, payload any) int {
	return r.BroadcastExcept(teamID, event, payload, "")
}

func (r *Router) BroadcastExcept(teamID, event string, payload any, exceptConnID string) int {
	frame, err := model.Encode(event, payload)
	if err != nil {
		r.log.Error("Failed to encode broadcast", "event", event, "team_id", teamID, "error", err)
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for id, conn := range r.rooms[teamID] {
		if id == exceptConnID {
			continue
		}
		if err := conn.sink.Send(frame); err != nil {
			r.log.Warn("Dropping connection after failed send", "user_id", conn.UserID(), "conn_id", id, "event", event, "error", err)
			go conn.Close()
			continue
		}
		delivered++
	}
	return delivered
}
