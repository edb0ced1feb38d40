package model

import (
	"slices"

	"github.com/samber/lo"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
)

// Principal is an authenticated user identity attached to a connection.
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

type Relationship string

const (
	RelationNone   Relationship = "none"
	RelationLeader Relationship = "leader"
	RelationMember Relationship = "member"
	RelationMentor Relationship = "mentor"
)

// IsPrincipal reports whether the relationship grants access to the team room.
func (r Relationship) IsPrincipal() bool {
	return r == RelationLeader || r == RelationMember || r == RelationMentor
}

type Team struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	LeaderID  string   `json:"leaderId"`
	MemberIDs []string `json:"memberIds"`
	MentorIDs []string `json:"mentorIds"`
	IsActive  bool     `json:"isActive"`
}

// RelationshipOf resolves the strongest relationship a user has with the team.
// Leadership wins over membership, membership over mentoring.
func (t Team) RelationshipOf(userID string) Relationship {
	switch {
	case userID == "":
		return RelationNone
	case t.LeaderID == userID:
		return RelationLeader
	case slices.Contains(t.MemberIDs, userID):
		return RelationMember
	case slices.Contains(t.MentorIDs, userID):
		return RelationMentor
	default:
		return RelationNone
	}
}

// IsMentor reports whether userID mentors the team, whatever other role they hold.
func (t Team) IsMentor(userID string) bool {
	return userID != "" && slices.Contains(t.MentorIDs, userID)
}

// MemberSide returns the leader followed by the members, without duplicates.
func (t Team) MemberSide() []string {
	ids := make([]string, 0, len(t.MemberIDs)+1)
	if t.LeaderID != "" {
		ids = append(ids, t.LeaderID)
	}
	return lo.Uniq(append(ids, t.MemberIDs...))
}

// Mentors returns mentor ids that are not already on the member side.
func (t Team) Mentors() []string {
	return lo.Without(lo.Uniq(t.MentorIDs), t.MemberSide()...)
}

// RosterEntry is one online principal in a presence update.
type RosterEntry struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	IsLeader bool   `json:"isLeader,omitempty"`
}

// PresenceSnapshot is the online roster of one team, computed on demand.
type PresenceSnapshot struct {
	TeamID        string        `json:"teamId"`
	OnlineMembers []RosterEntry `json:"onlineMembers"`
	OnlineMentors []RosterEntry `json:"onlineMentors"`
}
