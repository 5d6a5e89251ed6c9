// Command worker consumes message-processing jobs from the queue, calls the
// AI provider, and records completions. Run one or more instances alongside
// the API server; the queue guarantees each job is processed by a single
// worker at a time.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatroom-backend/internal/ai"
	"chatroom-backend/internal/config"
	"chatroom-backend/internal/observability"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/repo"
	"chatroom-backend/internal/sysutil"
	"chatroom-backend/internal/worker"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	gen, err := ai.NewClient(ai.Options{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("ai client setup failed")
	}

	policy := queue.RetryPolicy{MaxRetry: cfg.Queue.MaxRetry, BaseDelay: cfg.Queue.RetryBaseDelay}
	srv, err := queue.NewAsynqServer(cfg.Queue.RedisURL, cfg.Queue.Concurrency, policy)
	if err != nil {
		log.Fatal().Err(err).Msg("queue server setup failed")
	}

	proc := &worker.Processor{DB: db, Generator: gen}
	proc.Register(srv)

	log.Info().
		Int("concurrency", cfg.Queue.Concurrency).
		Int("max_retry", cfg.Queue.MaxRetry).
		Str("version", version).
		Msg("worker started")

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("worker stopped with error")
	}
	log.Info().Msg("worker stopped")
}
