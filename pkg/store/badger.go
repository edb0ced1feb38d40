package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/snowflake"
)

const maxConflictRetries = 10

// BadgerStore is the embedded backend. Keys:
//
//	msg:{id}             -> message document
//	tmsg:{team}:{id}     -> empty, team index ordered by id
//	team:{id}            -> team document
//	user:{id}            -> principal document
//
// Ids are zero padded to 19 digits so lexicographic order is numeric order.
type BadgerStore struct {
	db  *badger.DB
	ids *snowflake.Generator
	log *slog.Logger
}

func OpenBadger(path string, ids *snowflake.Generator, log *slog.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return NewBadgerStore(db, ids, log), nil
}

func NewBadgerStore(db *badger.DB, ids *snowflake.Generator, log *slog.Logger) *BadgerStore {
	return &BadgerStore{db: db, ids: ids, log: log}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func messageKey(id int64) []byte {
	return []byte(fmt.Sprintf("msg:%019d", id))
}

func teamPrefix(teamID string) []byte {
	return []byte("tmsg:" + teamID + ":")
}

func teamIndexKey(teamID string, id int64) []byte {
	return []byte(fmt.Sprintf("tmsg:%s:%019d", teamID, id))
}

func (s *BadgerStore) CreateMessage(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatMessage{}, err
	}
	msg.ID, msg.CreatedAt = s.ids.Next()
	msg.Normalize()

	raw, err := json.Marshal(msg)
	if err != nil {
		return model.ChatMessage{}, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(msg.ID), raw); err != nil {
			return err
		}
		return txn.Set(teamIndexKey(msg.TeamID, msg.ID), []byte{})
	})
	if err != nil {
		return model.ChatMessage{}, err
	}
	return msg, nil
}

func (s *BadgerStore) FindMessage(ctx context.Context, id int64) (model.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatMessage{}, err
	}
	var msg model.ChatMessage
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, messageKey(id), &msg)
	})
	return msg, err
}

// TeamMessages walks the team index backwards from the newest id.
func (s *BadgerStore) TeamMessages(ctx context.Context, teamID string, limit, skip int) ([]model.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, skip = ClampPage(limit, skip)
	messages := make([]model.ChatMessage, 0, limit)

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := teamPrefix(teamID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		seen := 0
		for it.Seek(append(prefix, []byte("9999999999999999999")...)); it.ValidForPrefix(prefix); it.Next() {
			if seen < skip {
				seen++
				continue
			}
			if len(messages) == limit {
				break
			}
			id, err := strconv.ParseInt(string(it.Item().Key()[len(prefix):]), 10, 64)
			if err != nil {
				return err
			}
			var msg model.ChatMessage
			if err := getJSON(txn, messageKey(id), &msg); err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *BadgerStore) UpdateMessage(ctx context.Context, msg model.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		var stored model.ChatMessage
		if err := getJSON(txn, messageKey(msg.ID), &stored); err != nil {
			return err
		}
		stored.Text = msg.Text
		stored.IsEdited = msg.IsEdited
		stored.EditedAt = msg.EditedAt
		return setJSON(txn, messageKey(stored.ID), stored)
	})
}

func (s *BadgerStore) MarkRead(ctx context.Context, id int64, receipt model.ReadReceipt) (model.ChatMessage, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatMessage{}, false, err
	}
	var (
		msg   model.ChatMessage
		added bool
	)
	err := s.update(func(txn *badger.Txn) error {
		msg = model.ChatMessage{}
		if err := getJSON(txn, messageKey(id), &msg); err != nil {
			return err
		}
		added = msg.AddReceipt(receipt)
		if !added {
			return nil
		}
		return setJSON(txn, messageKey(id), msg)
	})
	if err != nil {
		return model.ChatMessage{}, false, err
	}
	return msg, added, nil
}

func (s *BadgerStore) DeleteMessage(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		var msg model.ChatMessage
		if err := getJSON(txn, messageKey(id), &msg); err != nil {
			return err
		}
		if err := txn.Delete(messageKey(id)); err != nil {
			return err
		}
		return txn.Delete(teamIndexKey(msg.TeamID, id))
	})
}

func (s *BadgerStore) UnreadMessages(ctx context.Context, teamID, userID string) ([]model.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var unread []model.ChatMessage
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := teamPrefix(teamID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := strconv.ParseInt(string(it.Item().Key()[len(prefix):]), 10, 64)
			if err != nil {
				return err
			}
			var msg model.ChatMessage
			if err := getJSON(txn, messageKey(id), &msg); err != nil {
				return err
			}
			if msg.SenderID != userID && !msg.IsReadBy(userID) {
				unread = append(unread, msg)
			}
		}
		return nil
	})
	return unread, err
}

func (s *BadgerStore) UnreadCount(ctx context.Context, teamID, userID string) (int, error) {
	unread, err := s.UnreadMessages(ctx, teamID, userID)
	return len(unread), err
}

// Walk visits every stored message in id order.
func (s *BadgerStore) Walk(ctx context.Context, visit func(model.ChatMessage) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var msg model.ChatMessage
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &msg)
			})
			if err != nil {
				return err
			}
			if err := visit(msg); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) FindTeam(ctx context.Context, teamID string) (model.Team, error) {
	if err := ctx.Err(); err != nil {
		return model.Team{}, err
	}
	var team model.Team
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte("team:"+teamID), &team)
	})
	return team, err
}

func (s *BadgerStore) SaveTeam(ctx context.Context, team model.Team) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte("team:"+team.ID), team)
	})
}

func (s *BadgerStore) FindUser(ctx context.Context, userID string) (model.Principal, error) {
	if err := ctx.Err(); err != nil {
		return model.Principal{}, err
	}
	var user model.Principal
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte("user:"+userID), &user)
	})
	return user, err
}

func (s *BadgerStore) SaveUser(ctx context.Context, user model.Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte("user:"+user.ID), user)
	})
}

// update retries read-modify-write transactions that lost a conflict.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	for attempt := 1; ; attempt++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) || attempt == maxConflictRetries {
			return err
		}
		s.log.Debug("Badger transaction conflict, retrying", "attempt", attempt)
		time.Sleep(time.Duration(attempt) * time.Millisecond)
	}
}

func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(v []byte) error {
		return json.Unmarshal(v, dest)
	})
}

func setJSON(txn *badger.Txn, key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}
