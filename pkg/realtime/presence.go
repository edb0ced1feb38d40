package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/store"
	"github.com/samber/lo"
)

// Presence owns connection lifecycle and room membership. Room changes and the
// online-status-update they cause happen under one lock, so a roster snapshot is
// never broadcast out of order with a departure.
type Presence struct {
	log      *slog.Logger
	registry *Registry
	router   *Router
	oracle   MembershipOracle
	observer PresenceObserver

	mu sync.Mutex
}

// NewPresence wires the coordinator. observer may be nil.
func NewPresence(log *slog.Logger, registry *Registry, router *Router, oracle MembershipOracle, observer PresenceObserver) *Presence {
	return &Presence{
		log:      log,
		registry: registry,
		router:   router,
		oracle:   oracle,
		observer: observer,
	}
}

// Connect makes conn the live connection of its user.
func (p *Presence) Connect(conn *Connection) {
	p.mu.Lock()
	previous := p.registry.Register(conn)
	p.mu.Unlock()

	if previous != nil {
		p.log.Info("Superseded previous connection", "user_id", conn.UserID(), "old_conn_id", previous.ID, "conn_id", conn.ID)
	}
	p.log.Info("User connected", "user_id", conn.UserID(), "conn_id", conn.ID)
}

// Join places conn in the team room and broadcasts the refreshed roster to it.
// Users who are not principals of the team get ErrAuthorization and nothing is
// broadcast.
func (p *Presence) Join(ctx context.Context, conn *Connection, teamID string) error {
	team, err := p.oracle.Team(ctx, teamID)
	if err != nil {
		return p.lookupFailure(teamID, err)
	}
	rel := team.RelationshipOf(conn.UserID())
	if !rel.IsPrincipal() {
		p.log.Warn("Join denied", "user_id", conn.UserID(), "team_id", teamID)
		return fmt.Errorf("%w: not a member of team %s", ErrAuthorization, teamID)
	}

	p.mu.Lock()
	if current, ok := p.registry.Get(conn.UserID()); !ok || current != conn {
		p.mu.Unlock()
		return fmt.Errorf("%w: connection is no longer active", ErrAuthorization)
	}
	p.router.Join(conn, teamID)
	snapshot := p.snapshot(team)
	joined := conn.entry(team.LeaderID == conn.UserID())
	p.router.Broadcast(teamID, model.EventOnlineStatus, model.OnlineStatusUpdate{
		TeamID:        teamID,
		OnlineMembers: snapshot.OnlineMembers,
		OnlineMentors: snapshot.OnlineMentors,
		UserJoined:    &joined,
	})
	p.mu.Unlock()

	p.log.Info("Joined team room", "user_id", conn.UserID(), "team_id", teamID, "relationship", rel)
	if p.observer != nil {
		if err := p.observer.Online(ctx, teamID, conn.Principal); err != nil {
			p.log.Warn("Presence observer failed", "team_id", teamID, "user_id", conn.UserID(), "error", err)
		}
	}
	return nil
}

// Leave removes conn from the room and tells the remaining members.
func (p *Presence) Leave(ctx context.Context, conn *Connection, teamID string) error {
	p.mu.Lock()
	left := p.router.Leave(conn, teamID)
	if left {
		p.announceDeparture(conn, teamID)
	}
	p.mu.Unlock()

	if !left {
		return fmt.Errorf("%w: not in team room %s", ErrValidation, teamID)
	}
	p.log.Info("Left team room", "user_id", conn.UserID(), "team_id", teamID)
	p.markOffline(ctx, conn, teamID)
	return nil
}

// Disconnect tears conn down. A superseded connection leaves silently only from
// rooms the live connection of its user still holds; every other room gets a
// departure notice.
func (p *Presence) Disconnect(ctx context.Context, conn *Connection) {
	p.mu.Lock()
	rooms, current := p.registry.Unregister(conn)
	live, _ := p.registry.Get(conn.UserID())
	departed := make([]string, 0, len(rooms))
	for _, teamID := range rooms {
		p.router.Leave(conn, teamID)
		if live != nil && live.InRoom(teamID) {
			continue
		}
		p.announceDeparture(conn, teamID)
		departed = append(departed, teamID)
	}
	p.mu.Unlock()

	if current {
		p.log.Info("User disconnected", "user_id", conn.UserID(), "conn_id", conn.ID, "rooms", len(rooms))
	} else {
		p.log.Info("Superseded connection closed", "user_id", conn.UserID(), "conn_id", conn.ID, "rooms", len(rooms), "departed", len(departed))
	}
	for _, teamID := range departed {
		p.markOffline(ctx, conn, teamID)
	}
}

// Snapshot computes the online roster of a team on demand.
func (p *Presence) Snapshot(ctx context.Context, teamID string) (model.PresenceSnapshot, error) {
	team, err := p.oracle.Team(ctx, teamID)
	if err != nil {
		return model.PresenceSnapshot{}, p.lookupFailure(teamID, err)
	}
	return p.snapshot(team), nil
}

func (p *Presence) snapshot(team model.Team) model.PresenceSnapshot {
	memberSide := team.MemberSide()
	mentors := team.Mentors()
	online := p.registry.Lookup(slices.Concat(memberSide, mentors)...)

	roster := func(ids []string) []model.RosterEntry {
		return lo.FilterMap(ids, func(id string, _ int) (model.RosterEntry, bool) {
			conn, ok := online[id]
			if !ok {
				return model.RosterEntry{}, false
			}
			return conn.entry(id == team.LeaderID), true
		})
	}
	return model.PresenceSnapshot{
		TeamID:        team.ID,
		OnlineMembers: roster(memberSide),
		OnlineMentors: roster(mentors),
	}
}

func (p *Presence) announceDeparture(conn *Connection, teamID string) {
	left := conn.entry(false)
	p.router.BroadcastExcept(teamID, model.EventOnlineStatus, model.OnlineStatusUpdate{
		TeamID:   teamID,
		UserLeft: &left,
	}, conn.ID)
}

func (p *Presence) markOffline(ctx context.Context, conn *Connection, teamID string) {
	if p.observer == nil {
		return
	}
	if err := p.observer.Offline(ctx, teamID, conn.UserID()); err != nil {
		p.log.Warn("Presence observer failed", "team_id", teamID, "user_id", conn.UserID(), "error", err)
	}
}

func (p *Presence) lookupFailure(teamID string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: team %s", ErrNotFound, teamID)
	}
	p.log.Error("Team lookup failed", "team_id", teamID, "error", err)
	return fmt.Errorf("%w: team lookup: %v", ErrStore, err)
}
