package store

import (
	"context"

	"github.com/mahaj/teamsync/pkg/model"
)

// Oracle answers team relationship questions from the team store.
type Oracle struct {
	teams TeamStore
}

func NewOracle(teams TeamStore) *Oracle {
	return &Oracle{teams: teams}
}

func (o *Oracle) Team(ctx context.Context, teamID string) (model.Team, error) {
	return o.teams.FindTeam(ctx, teamID)
}

func (o *Oracle) Relationship(ctx context.Context, teamID, userID string) (model.Relationship, error) {
	team, err := o.teams.FindTeam(ctx, teamID)
	if err != nil {
		return model.RelationNone, err
	}
	return team.RelationshipOf(userID), nil
}
