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

	"github.com/mahaj/teamsync/pkg/auth"
	"github.com/mahaj/teamsync/pkg/config"
	"github.com/mahaj/teamsync/pkg/notify"
	"github.com/mahaj/teamsync/pkg/presence"
	"github.com/mahaj/teamsync/pkg/snowflake"
	"github.com/mahaj/teamsync/pkg/store"
	"github.com/mama165/sdk-go/logs"
)

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if r.Method == http.MethodOptions {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.API
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

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	api := &API{
		log:          log,
		messages:     backend,
		users:        backend,
		oracle:       store.NewOracle(backend),
		verifier:     verifier,
		historyLimit: cfg.HistoryLimit,
	}
	if cfg.RedisAddr != "" {
		rdb := presence.NewClient(cfg.RedisAddr)
		defer rdb.Close()
		api.presence = presence.NewMirror(rdb, log)
	}
	if brokers := config.List(cfg.KafkaBrokers); len(brokers) > 0 {
		publisher := notify.NewPublisher(brokers, cfg.NoticeTopic, log)
		defer publisher.Close()
		api.notices = publisher
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Routes(auth.NewGate(verifier, backend, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("API starting", "addr", cfg.ListenAddr, "store", cfg.StoreBackend,
			"presence", api.presence != nil, "notices", api.notices != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
