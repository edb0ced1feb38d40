package realtime

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// Registry maps a user id to its live connection. The latest connection of a
// user wins; the one it replaces is closed.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	log         *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
		log:         log,
	}
}

// Register records conn and returns the connection it superseded, if any.
func (r *Registry) Register(conn *Connection) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, exists := r.connections[conn.UserID()]
	r.connections[conn.UserID()] = conn
	if !exists || previous == conn {
		return nil
	}

	// closed outside the lock: the close path ends in Unregister
	go func() {
		if err := previous.Close(); err != nil {
			r.log.Debug("Closing superseded connection failed", "user_id", previous.UserID(), "error", err)
		}
	}()
	return previous
}

// Unregister removes conn and returns the rooms it had joined. The boolean is
// false when conn had already been superseded by a newer connection, in which
// case the registry entry is left untouched.
func (r *Registry) Unregister(conn *Connection) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := conn.Rooms()
	if current, ok := r.connections[conn.UserID()]; !ok || current != conn {
		return rooms, false
	}
	delete(r.connections, conn.UserID())
	return rooms, true
}

func (r *Registry) Get(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[userID]
	return conn, ok
}

// Lookup returns the live connections among userIDs, read under one lock.
func (r *Registry) Lookup(userIDs ...string) map[string]*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	online := make(map[string]*Connection, len(userIDs))
	for _, id := range userIDs {
		if conn, ok := r.connections[id]; ok {
			online[id] = conn
		}
	}
	return online
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// All returns every live connection.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.connections)
}
