package presence

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/mahaj/teamsync/pkg/model"
	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 2 * time.Second

// Key is the Redis set holding the online user ids of a team.
func Key(teamID string) string {
	return "team:" + teamID + ":online"
}

// Mirror copies room presence into Redis so services without sockets can read it.
// The gateway's in-memory registry stays authoritative.
type Mirror struct {
	rdb     redis.Cmdable
	log     *slog.Logger
	timeout time.Duration
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func NewMirror(rdb redis.Cmdable, log *slog.Logger) *Mirror {
	return &Mirror{rdb: rdb, log: log, timeout: defaultTimeout}
}

func (m *Mirror) Online(ctx context.Context, teamID string, principal model.Principal) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()
	if err := m.rdb.SAdd(ctx, Key(teamID), principal.ID).Err(); err != nil {
		return err
	}
	m.log.Debug("Presence set", "team_id", teamID, "user_id", principal.ID)
	return nil
}

func (m *Mirror) Offline(ctx context.Context, teamID, userID string) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()
	if err := m.rdb.SRem(ctx, Key(teamID), userID).Err(); err != nil {
		return err
	}
	m.log.Debug("Presence removed", "team_id", teamID, "user_id", userID)
	return nil
}

// Members returns the online user ids of a team, sorted.
func (m *Mirror) Members(ctx context.Context, teamID string) ([]string, error) {
	ctx, cancel := m.bound(ctx)
	defer cancel()
	users, err := m.rdb.SMembers(ctx, Key(teamID)).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(users)
	return users, nil
}

// Clear drops the online sets of teamIDs. scripts/migrate calls it after seeding
// so reloaded teams start with nobody online.
func (m *Mirror) Clear(ctx context.Context, teamIDs ...string) error {
	if len(teamIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(teamIDs))
	for _, id := range teamIDs {
		keys = append(keys, Key(id))
	}
	ctx, cancel := m.bound(ctx)
	defer cancel()
	return m.rdb.Del(ctx, keys...).Err()
}

// bound detaches ctx from the caller's cancellation, since disconnect cleanup
// runs after the request context is gone.
func (m *Mirror) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
}
