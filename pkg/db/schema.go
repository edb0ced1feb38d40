package db

import (
	"fmt"
	"log/slog"
)

// Tables backing the chat store. messages is partitioned by team and clustered
// by snowflake id so the newest page is a plain LIMIT scan.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		team_id text,
		id bigint,
		sender_id text,
		sender_name text,
		body text,
		kind text,
		file_url text,
		file_name text,
		is_edited boolean,
		edited_at timestamp,
		created_at timestamp,
		PRIMARY KEY (team_id, id)
	) WITH CLUSTERING ORDER BY (id DESC)`,
	`CREATE TABLE IF NOT EXISTS messages_by_id (
		id bigint PRIMARY KEY,
		team_id text
	)`,
	`CREATE TABLE IF NOT EXISTS message_reads (
		message_id bigint,
		user_id text,
		user_name text,
		read_at timestamp,
		PRIMARY KEY (message_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id text PRIMARY KEY,
		name text,
		leader_id text,
		member_ids list<text>,
		mentor_ids list<text>,
		is_active boolean
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id text PRIMARY KEY,
		name text,
		email text,
		role text
	)`,
}

// Migrate creates the keyspace through the system keyspace, then every table.
func Migrate(hosts []string, keyspace string, replication int, log *slog.Logger) error {
	sys, err := NewSession(hosts, "system", log)
	if err != nil {
		return fmt.Errorf("connect to system keyspace: %w", err)
	}
	err = sys.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : %d }`,
		keyspace, replication,
	)).Exec()
	sys.Close()
	if err != nil {
		return fmt.Errorf("create keyspace %s: %w", keyspace, err)
	}

	session, err := NewSession(hosts, keyspace, log)
	if err != nil {
		return fmt.Errorf("connect to keyspace %s: %w", keyspace, err)
	}
	defer session.Close()

	for _, stmt := range tables {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	log.Info("Schema is up to date", "keyspace", keyspace, "tables", len(tables))
	return nil
}

// Drop removes every table of the chat store.
func Drop(session *Session, log *slog.Logger) error {
	for _, table := range []string{"messages", "messages_by_id", "message_reads", "teams", "users"} {
		if err := session.Query("DROP TABLE IF EXISTS " + table).Exec(); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
		log.Info("Table dropped", "table", table)
	}
	return nil
}
