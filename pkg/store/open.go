package store

import (
	"fmt"
	"log/slog"

	"github.com/mahaj/teamsync/pkg/db"
	"github.com/mahaj/teamsync/pkg/snowflake"
)

const (
	BackendBadger = "badger"
	BackendScylla = "scylla"
)

// Backend bundles every store a service needs behind one handle.
type Backend interface {
	MessageStore
	TeamStore
	UserStore
	Close() error
}

type Options struct {
	Kind        string
	BadgerPath  string
	ScyllaHosts []string
	Keyspace    string
}

func Open(opts Options, ids *snowflake.Generator, log *slog.Logger) (Backend, error) {
	switch opts.Kind {
	case BackendBadger, "":
		log.Info("Opening embedded store", "path", opts.BadgerPath)
		return OpenBadger(opts.BadgerPath, ids, log)
	case BackendScylla:
		session, err := db.NewSession(opts.ScyllaHosts, opts.Keyspace, log)
		if err != nil {
			return nil, fmt.Errorf("connect to scylla: %w", err)
		}
		return NewScyllaStore(session, ids), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Kind)
	}
}
