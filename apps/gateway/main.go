package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mahaj/teamsync/pkg/auth"
	"github.com/mahaj/teamsync/pkg/config"
	"github.com/mahaj/teamsync/pkg/notify"
	"github.com/mahaj/teamsync/pkg/presence"
	"github.com/mahaj/teamsync/pkg/realtime"
	"github.com/mahaj/teamsync/pkg/snowflake"
	"github.com/mahaj/teamsync/pkg/store"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.Gateway
	if err := config.Load(&cfg); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	ids, err := snowflake.NewGenerator(cfg.SnowflakeNode)
	if err != nil {
		return fmt.Errorf("snowflake: %w", err)
	}
	backend, err := store.Open(store.Options{
		Kind:        cfg.StoreBackend,
		BadgerPath:  cfg.BadgerPath,
		ScyllaHosts: config.List(cfg.ScyllaHosts),
		Keyspace:    cfg.ScyllaKeyspace,
	}, ids, log)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() {
		log.Info("Closing store...")
		_ = backend.Close()
	}()

	var observer realtime.PresenceObserver
	if cfg.RedisAddr != "" {
		rdb := presence.NewClient(cfg.RedisAddr)
		defer rdb.Close()
		observer = presence.NewMirror(rdb, log)
		log.Info("Presence mirror enabled", "redis", cfg.RedisAddr)
	}

	gate := auth.NewGate(auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer), backend, log)
	hub := NewHub(log, gate, backend, store.NewOracle(backend), observer, socketSettings{
		pongWait:       cfg.PongWait,
		writeWait:      cfg.WriteWait,
		maxMessageSize: cfg.MaxMessageSize,
		sendBuffer:     cfg.SendBuffer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if brokers := config.List(cfg.KafkaBrokers); len(brokers) > 0 {
		// own group per instance: every gateway relays every notice
		group := cfg.NoticeGroup + "-" + uuid.NewString()
		consumer := notify.NewConsumer(brokers, cfg.NoticeTopic, group, log)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx, hub.RelayNotice); err != nil {
				log.Error("Notice consumer stopped", "error", err)
			}
		}()
		log.Info("Notice relay enabled", "topic", cfg.NoticeTopic, "group", group)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Gateway starting", "addr", cfg.ListenAddr, "store", cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.CloseAll()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Gateway stopped")
	return nil
}
