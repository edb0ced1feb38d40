package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSeed(t *testing.T) {
	req := require.New(t)
	seed, err := loadSeed(strings.NewReader(`{
		"users": [
			{"id": "alice", "name": "Alice", "role": "student"},
			{"id": "mia", "name": "Mia", "email": "mia@example.com", "role": "mentor"}
		],
		"teams": [
			{"id": "T1", "name": "Rocket", "leaderId": "alice", "mentorIds": ["mia"]}
		]
	}`))

	req.NoError(err)
	req.Len(seed.Users, 2)
	req.Equal("alice", seed.Teams[0].LeaderID)
	req.Equal([]string{"T1"}, seed.teamIDs())
}

func TestLoadSeed_Rejects(t *testing.T) {
	tests := map[string]string{
		"bad json":     `{"users": [`,
		"unknown role": `{"users": [{"id": "x", "name": "X", "role": "admin"}]}`,
		"bad email":    `{"users": [{"id": "x", "name": "X", "email": "nope", "role": "student"}]}`,
		"no leader":    `{"teams": [{"id": "T1", "name": "Rocket"}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadSeed(strings.NewReader(body))
			require.Error(t, err)
		})
	}
}
