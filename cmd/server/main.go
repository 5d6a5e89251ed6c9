// Command server runs the HTTP API: auth, chatrooms, message submission, and
// the read endpoints. Message completion runs in the separate worker process;
// the two share the database and the Redis-backed queue.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/config"
	httpapi "chatroom-backend/internal/http"
	"chatroom-backend/internal/observability"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/repo"
	"chatroom-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments configure via the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing first so everything below is instrumented.
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

	// Chatroom list cache: Redis when reachable, otherwise in-process. The
	// cache is advisory, so a degraded backend must not stop the server.
	var store cache.Store
	if redisStore, err := cache.NewRedis(cfg.Queue.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis cache unavailable, using in-process cache")
		store = cache.NewMemory()
	} else {
		store = redisStore
	}
	defer store.Close()

	policy := queue.RetryPolicy{MaxRetry: cfg.Queue.MaxRetry, BaseDelay: cfg.Queue.RetryBaseDelay}
	qc, err := queue.NewAsynqClient(cfg.Queue.RedisURL, policy)
	if err != nil {
		log.Fatal().Err(err).Msg("queue client setup failed")
	}
	defer qc.Close()

	r := gin.New()
	httpapi.RegisterRoutes(r, db, store, qc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
