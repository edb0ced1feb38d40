package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/mahaj/teamsync/pkg/config"
	"github.com/mahaj/teamsync/pkg/db"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/presence"
	"github.com/mahaj/teamsync/pkg/snowflake"
	"github.com/mahaj/teamsync/pkg/store"
	"github.com/mama165/sdk-go/logs"
)

// Seed is the fixture file format: the users and teams to load.
type Seed struct {
	Users []seedUser `json:"users" validate:"dive"`
	Teams []seedTeam `json:"teams" validate:"dive"`
}

type seedUser struct {
	ID    string     `json:"id" validate:"required"`
	Name  string     `json:"name" validate:"required"`
	Email string     `json:"email" validate:"omitempty,email"`
	Role  model.Role `json:"role" validate:"oneof=student mentor"`
}

type seedTeam struct {
	ID        string   `json:"id" validate:"required"`
	Name      string   `json:"name" validate:"required"`
	LeaderID  string   `json:"leaderId" validate:"required"`
	MemberIDs []string `json:"memberIds"`
	MentorIDs []string `json:"mentorIds"`
}

func (s Seed) teamIDs() []string {
	ids := make([]string, 0, len(s.Teams))
	for _, t := range s.Teams {
		ids = append(ids, t.ID)
	}
	return ids
}

func loadSeed(r io.Reader) (Seed, error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	if err := validator.New().Struct(seed); err != nil {
		return Seed{}, fmt.Errorf("invalid seed: %w", err)
	}
	return seed, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	drop := flag.Bool("drop", false, "drop every table before migrating (scylla only)")
	seedPath := flag.String("seed", "", "JSON file of users and teams to load into the configured store")
	replication := flag.Int("replication", 1, "keyspace replication factor")
	flag.Parse()

	var cfg config.API
	if err := config.Load(&cfg); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)
	hosts := config.List(cfg.ScyllaHosts)

	if cfg.StoreBackend == store.BackendScylla {
		if *drop {
			session, err := db.NewSession(hosts, cfg.ScyllaKeyspace, log)
			if err != nil {
				return err
			}
			err = db.Drop(session, log)
			session.Close()
			if err != nil {
				return err
			}
		}
		if err := db.Migrate(hosts, cfg.ScyllaKeyspace, *replication, log); err != nil {
			return err
		}
	}

	if *seedPath == "" {
		return nil
	}
	f, err := os.Open(*seedPath)
	if err != nil {
		return err
	}
	defer f.Close()
	seed, err := loadSeed(f)
	if err != nil {
		return err
	}

	ids, err := snowflake.NewGenerator(cfg.SnowflakeNode)
	if err != nil {
		return err
	}
	backend, err := store.Open(store.Options{
		Kind:        cfg.StoreBackend,
		BadgerPath:  cfg.BadgerPath,
		ScyllaHosts: hosts,
		Keyspace:    cfg.ScyllaKeyspace,
	}, ids, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	ctx := context.Background()
	for _, u := range seed.Users {
		if err := backend.SaveUser(ctx, model.Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}); err != nil {
			return fmt.Errorf("save user %s: %w", u.ID, err)
		}
	}
	for _, t := range seed.Teams {
		team := model.Team{ID: t.ID, Name: t.Name, LeaderID: t.LeaderID, MemberIDs: t.MemberIDs, MentorIDs: t.MentorIDs, IsActive: true}
		if err := backend.SaveTeam(ctx, team); err != nil {
			return fmt.Errorf("save team %s: %w", t.ID, err)
		}
	}
	log.Info("Seed loaded", "users", len(seed.Users), "teams", len(seed.Teams), "store", cfg.StoreBackend)

	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := presence.NewClient(cfg.RedisAddr)
	defer rdb.Close()
	if err := presence.NewMirror(rdb, log).Clear(ctx, seed.teamIDs()...); err != nil {
		return fmt.Errorf("reset presence: %w", err)
	}
	log.Info("Presence reset", "teams", len(seed.Teams), "redis", cfg.RedisAddr)
	return nil
}
