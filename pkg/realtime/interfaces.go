//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=../mocks/mock_realtime.go -package=mocks
package realtime

import (
	"context"

	"github.com/mahaj/teamsync/pkg/model"
)

// MembershipOracle answers whether a user is leader, member or mentor of a team.
// Unknown teams are reported with store.ErrNotFound.
type MembershipOracle interface {
	Relationship(ctx context.Context, teamID, userID string) (model.Relationship, error)
	Team(ctx context.Context, teamID string) (model.Team, error)
}

// PresenceObserver is told about online transitions, after the room broadcast.
type PresenceObserver interface {
	Online(ctx context.Context, teamID string, principal model.Principal) error
	Offline(ctx context.Context, teamID, userID string) error
}
