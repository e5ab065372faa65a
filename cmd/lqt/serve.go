package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hyperengineering/lifequality/internal/api"
	"github.com/hyperengineering/lifequality/internal/blob"
	"github.com/hyperengineering/lifequality/internal/config"
	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/ratelimit"
	"github.com/hyperengineering/lifequality/internal/worker"
	"github.com/spf13/cobra"
)

// pruneInterval is how often idle in-memory rate-limit windows are dropped.
const pruneInterval = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the remote ratings and sync server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(os.Stdout, cfg.Log)
	slog.Info("configuration loaded", "level", cfg.Log.Level)

	if err := cfg.RequireServer(); err != nil {
		return err
	}
	if config.DevMode() {
		slog.Warn("dev mode enabled")
	}

	path := cfg.Storage.Path
	if dbPathOverride != "" {
		path = dbPathOverride
	}
	kv, err := localstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", path)

	docs, err := blob.NewStore(cfg.Blob, kv)
	if err != nil {
		kv.Close()
		return err
	}
	backend := "sqlite"
	if cfg.Blob.Bucket != "" {
		backend = "s3"
	}
	slog.Info("blob store initialized", "backend", backend)

	var wg sync.WaitGroup

	limiter, closeLimiter, err := newLimiter(ctx, &wg, cfg.RateLimit)
	if err != nil {
		kv.Close()
		return err
	}

	handler := api.NewHandler(docs, backend, Version)
	router := api.NewRouter(handler, api.RouterConfig{
		Password:      cfg.Auth.Password,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Limiter:       limiter,
	})
	slog.Info("router initialized")

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	go func() {
		slog.Info("server starting", "address", addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	closeLimiter()
	if err := kv.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newLimiter picks the shared Redis limiter when a URL is configured and
// falls back to the in-process window, whose idle entries a worker prunes.
func newLimiter(ctx context.Context, wg *sync.WaitGroup, cfg config.RateLimitConfig) (ratelimit.Limiter, func(), error) {
	period := time.Duration(cfg.Window)

	if cfg.RedisURL != "" {
		l, client, err := ratelimit.NewRedisFixedWindow(ctx, cfg.RedisURL, cfg.Limit, period)
		if err != nil {
			return nil, nil, fmt.Errorf("connect rate limit redis: %w", err)
		}
		slog.Info("rate limiter initialized", "backend", "redis", "limit", cfg.Limit, "window", period)
		return l, func() {
			if err := client.Close(); err != nil {
				slog.Error("redis close error", "error", err)
			}
		}, nil
	}

	l := ratelimit.NewFixedWindow(cfg.Limit, period)
	startWorker(ctx, wg, "ratelimit-prune", worker.NewPruneWorker(l, pruneInterval).Run)
	slog.Info("rate limiter initialized", "backend", "memory", "limit", cfg.Limit, "window", period)
	return l, func() {}, nil
}
