package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/gocql/gocql"
	"github.com/mahaj/teamsync/pkg/db"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/snowflake"
	"github.com/samber/lo"
)

const messageColumns = `team_id, id, sender_id, sender_name, body, kind, file_url, file_name, is_edited, edited_at, created_at`

// receipts for many messages are fetched with IN queries of at most this many ids
const inChunk = 100

// ScyllaStore is the clustered backend. See db.Migrate for the tables.
type ScyllaStore struct {
	session *db.Session
	ids     *snowflake.Generator
}

func NewScyllaStore(session *db.Session, ids *snowflake.Generator) *ScyllaStore {
	return &ScyllaStore{session: session, ids: ids}
}

func (s *ScyllaStore) Close() error {
	s.session.Close()
	return nil
}

type messageRow struct {
	msg      model.ChatMessage
	kind     string
	editedAt time.Time
}

func (r *messageRow) dest() []interface{} {
	return []interface{}{
		&r.msg.TeamID, &r.msg.ID, &r.msg.SenderID, &r.msg.SenderName, &r.msg.Text, &r.kind,
		&r.msg.FileURL, &r.msg.FileName, &r.msg.IsEdited, &r.editedAt, &r.msg.CreatedAt,
	}
}

func (r *messageRow) toMessage() model.ChatMessage {
	msg := r.msg
	msg.Kind = model.MessageKind(r.kind)
	if !r.editedAt.IsZero() {
		at := r.editedAt.UTC()
		msg.EditedAt = &at
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.Normalize()
	return msg
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func notFound(err error) error {
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *ScyllaStore) CreateMessage(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	msg.ID, msg.CreatedAt = s.ids.Next()
	msg.Normalize()

	b := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	b.Query(`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.TeamID, msg.ID, msg.SenderID, msg.SenderName, msg.Text, string(msg.Kind),
		msg.FileURL, msg.FileName, msg.IsEdited, nullableTime(msg.EditedAt), msg.CreatedAt)
	b.Query(`INSERT INTO messages_by_id (id, team_id) VALUES (?, ?)`, msg.ID, msg.TeamID)
	if err := s.session.ExecuteBatch(b); err != nil {
		return model.ChatMessage{}, err
	}
	return msg, nil
}

func (s *ScyllaStore) FindMessage(ctx context.Context, id int64) (model.ChatMessage, error) {
	var teamID string
	if err := s.session.Query(`SELECT team_id FROM messages_by_id WHERE id = ?`, id).
		WithContext(ctx).Scan(&teamID); err != nil {
		return model.ChatMessage{}, notFound(err)
	}

	var row messageRow
	if err := s.session.Query(`SELECT `+messageColumns+` FROM messages WHERE team_id = ? AND id = ?`, teamID, id).
		WithContext(ctx).Scan(row.dest()...); err != nil {
		return model.ChatMessage{}, notFound(err)
	}
	msg := row.toMessage()

	receipts, err := s.receipts(ctx, []int64{id})
	if err != nil {
		return model.ChatMessage{}, err
	}
	if r, ok := receipts[id]; ok {
		msg.ReadBy = r
	}
	return msg, nil
}

func (s *ScyllaStore) TeamMessages(ctx context.Context, teamID string, limit, skip int) ([]model.ChatMessage, error) {
	limit, skip = ClampPage(limit, skip)
	iter := s.session.Query(`SELECT `+messageColumns+` FROM messages WHERE team_id = ? LIMIT ?`, teamID, limit+skip).
		WithContext(ctx).Iter()

	messages := make([]model.ChatMessage, 0, limit)
	var row messageRow
	seen := 0
	for iter.Scan(row.dest()...) {
		seen++
		if seen <= skip {
			continue
		}
		messages = append(messages, row.toMessage())
		row = messageRow{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	receipts, err := s.receipts(ctx, lo.Map(messages, func(m model.ChatMessage, _ int) int64 { return m.ID }))
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if r, ok := receipts[messages[i].ID]; ok {
			messages[i].ReadBy = r
		}
	}
	return messages, nil
}

// receipts loads read receipts for the given messages, ordered by read time.
func (s *ScyllaStore) receipts(ctx context.Context, ids []int64) (map[int64][]model.ReadReceipt, error) {
	result := make(map[int64][]model.ReadReceipt, len(ids))
	for _, chunk := range lo.Chunk(ids, inChunk) {
		iter := s.session.Query(`SELECT message_id, user_id, user_name, read_at FROM message_reads WHERE message_id IN ?`, chunk).
			WithContext(ctx).Iter()
		var (
			id int64
			r  model.ReadReceipt
		)
		for iter.Scan(&id, &r.UserID, &r.Name, &r.ReadAt) {
			r.ReadAt = r.ReadAt.UTC()
			result[id] = append(result[id], r)
		}
		if err := iter.Close(); err != nil {
			return nil, err
		}
	}
	for id := range result {
		slices.SortStableFunc(result[id], func(a, b model.ReadReceipt) int {
			return a.ReadAt.Compare(b.ReadAt)
		})
	}
	return result, nil
}

func (s *ScyllaStore) UpdateMessage(ctx context.Context, msg model.ChatMessage) error {
	applied, err := s.session.Query(
		`UPDATE messages SET body = ?, is_edited = ?, edited_at = ? WHERE team_id = ? AND id = ? IF EXISTS`,
		msg.Text, msg.IsEdited, nullableTime(msg.EditedAt), msg.TeamID, msg.ID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotFound
	}
	return nil
}

// MarkRead relies on the (message_id, user_id) primary key for uniqueness;
// the lightweight transaction tells whether this call added the receipt.
func (s *ScyllaStore) MarkRead(ctx context.Context, id int64, receipt model.ReadReceipt) (model.ChatMessage, bool, error) {
	msg, err := s.FindMessage(ctx, id)
	if err != nil {
		return model.ChatMessage{}, false, err
	}
	if msg.IsReadBy(receipt.UserID) {
		return msg, false, nil
	}

	applied, err := s.session.Query(
		`INSERT INTO message_reads (message_id, user_id, user_name, read_at) VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		id, receipt.UserID, receipt.Name, receipt.ReadAt,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return model.ChatMessage{}, false, err
	}
	if applied {
		msg.ReadBy = append(msg.ReadBy, receipt)
	}
	return msg, applied, nil
}

func (s *ScyllaStore) DeleteMessage(ctx context.Context, id int64) error {
	var teamID string
	if err := s.session.Query(`SELECT team_id FROM messages_by_id WHERE id = ?`, id).
		WithContext(ctx).Scan(&teamID); err != nil {
		return notFound(err)
	}

	b := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	b.Query(`DELETE FROM messages WHERE team_id = ? AND id = ?`, teamID, id)
	b.Query(`DELETE FROM messages_by_id WHERE id = ?`, id)
	b.Query(`DELETE FROM message_reads WHERE message_id = ?`, id)
	return s.session.ExecuteBatch(b)
}

func (s *ScyllaStore) UnreadMessages(ctx context.Context, teamID, userID string) ([]model.ChatMessage, error) {
	iter := s.session.Query(`SELECT `+messageColumns+` FROM messages WHERE team_id = ?`, teamID).
		WithContext(ctx).Iter()
	var candidates []model.ChatMessage
	var row messageRow
	for iter.Scan(row.dest()...) {
		if row.msg.SenderID != userID {
			candidates = append(candidates, row.toMessage())
		}
		row = messageRow{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	read := make(map[int64]struct{})
	ids := lo.Map(candidates, func(m model.ChatMessage, _ int) int64 { return m.ID })
	for _, chunk := range lo.Chunk(ids, inChunk) {
		iter := s.session.Query(`SELECT message_id FROM message_reads WHERE message_id IN ? AND user_id = ?`, chunk, userID).
			WithContext(ctx).Iter()
		var id int64
		for iter.Scan(&id) {
			read[id] = struct{}{}
		}
		if err := iter.Close(); err != nil {
			return nil, err
		}
	}

	unread := lo.Filter(candidates, func(m model.ChatMessage, _ int) bool {
		_, ok := read[m.ID]
		return !ok
	})
	// oldest first, like the badger backend
	slices.Reverse(unread)
	return unread, nil
}

func (s *ScyllaStore) UnreadCount(ctx context.Context, teamID, userID string) (int, error) {
	unread, err := s.UnreadMessages(ctx, teamID, userID)
	return len(unread), err
}

func (s *ScyllaStore) FindTeam(ctx context.Context, teamID string) (model.Team, error) {
	var team model.Team
	err := s.session.Query(`SELECT id, name, leader_id, member_ids, mentor_ids, is_active FROM teams WHERE id = ?`, teamID).
		WithContext(ctx).Scan(&team.ID, &team.Name, &team.LeaderID, &team.MemberIDs, &team.MentorIDs, &team.IsActive)
	if err != nil {
		return model.Team{}, notFound(err)
	}
	return team, nil
}

func (s *ScyllaStore) SaveTeam(ctx context.Context, team model.Team) error {
	return s.session.Query(`INSERT INTO teams (id, name, leader_id, member_ids, mentor_ids, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		team.ID, team.Name, team.LeaderID, team.MemberIDs, team.MentorIDs, team.IsActive).
		WithContext(ctx).Exec()
}

func (s *ScyllaStore) FindUser(ctx context.Context, userID string) (model.Principal, error) {
	var (
		user model.Principal
		role string
	)
	err := s.session.Query(`SELECT id, name, email, role FROM users WHERE id = ?`, userID).
		WithContext(ctx).Scan(&user.ID, &user.Name, &user.Email, &role)
	if err != nil {
		return model.Principal{}, notFound(err)
	}
	user.Role = model.Role(role)
	return user, nil
}

func (s *ScyllaStore) SaveUser(ctx context.Context, user model.Principal) error {
	return s.session.Query(`INSERT INTO users (id, name, email, role) VALUES (?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, string(user.Role)).
		WithContext(ctx).Exec()
}
