package db

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gocql/gocql"
)

var ErrNoHosts = errors.New("no scylla hosts configured")

// Session is a gocql session bound to one keyspace of the chat store.
type Session struct {
	*gocql.Session
	Keyspace string
}

// NewSession connects to keyspace on hosts. Reads and writes run at QUORUM so a
// receipt written through one gateway is visible to the API on the next read.
// Pass "system" to reach the cluster before the chat keyspace exists.
func NewSession(hosts []string, keyspace string, log *slog.Logger) (*Session, error) {
	cluster, err := newCluster(hosts, keyspace)
	if err != nil {
		return nil, err
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	log.Info("Connected to ScyllaDB cluster", "hosts", hosts, "keyspace", keyspace)
	return &Session{Session: session, Keyspace: keyspace}, nil
}

func newCluster(hosts []string, keyspace string) (*gocql.ClusterConfig, error) {
	if len(hosts) == 0 {
		return nil, ErrNoHosts
	}
	if keyspace == "" {
		keyspace = "system"
	}
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        time.Second,
	}
	return cluster, nil
}
