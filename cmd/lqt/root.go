package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/hyperengineering/lifequality/internal/config"
	"github.com/hyperengineering/lifequality/internal/hypothesis"
	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/ratings"
	"github.com/hyperengineering/lifequality/pkg/syncclient"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var (
	dbPathOverride string
	jsonOutput     bool
)

var rootCmd = &cobra.Command{
	Use:           "lqt",
	Short:         "Life Quality Tracker",
	Long:          "Record weekly life-quality ratings, analyze them, and sync them with a remote server.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"Local database path (overrides config and LQT_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(weekCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(hypothesisCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the client-side components a CLI command works with.
type app struct {
	cfg        *config.Config
	kv         localstore.Store
	ratings    *ratings.Store
	hypotheses *hypothesis.Store
	sync       *syncclient.Client
}

// openApp loads configuration and opens the local store. Logs go to stderr
// so command output on stdout stays clean.
func openApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogger(logOut, cfg.Log)

	path := cfg.Storage.Path
	if dbPathOverride != "" {
		path = dbPathOverride
	}
	kv, err := localstore.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Ratings.Location)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("load location: %w", err)
	}
	opts := []ratings.Option{
		ratings.WithWeekStart(cfg.WeekStartDay()),
		ratings.WithLocation(loc),
	}
	if len(cfg.Ratings.Metrics) > 0 {
		opts = append(opts, ratings.WithCatalog(cfg.Ratings.Metrics))
	}
	rs := ratings.New(ctx, kv, opts...)

	token := cfg.Sync.Token
	if token == "" {
		token = cfg.Auth.Password
	}
	sc := syncclient.New(syncclient.Config{
		BaseURL: cfg.Sync.RemoteURL,
		Token:   token,
		Timeout: time.Duration(cfg.Sync.Timeout),
		OnApplied: func() {
			rs.Reload(context.Background())
		},
	}, kv)

	return &app{
		cfg:        cfg,
		kv:         kv,
		ratings:    rs,
		hypotheses: hypothesis.NewStore(kv),
		sync:       sc,
	}, nil
}

// scheduleSync queues a debounced sync after a local write.
func (a *app) scheduleSync() {
	a.sync.DebouncedSync(time.Duration(a.cfg.Sync.Debounce))
}

// Close flushes any pending sync and closes the local store.
func (a *app) Close(ctx context.Context) {
	a.sync.Flush(ctx)
	a.sync.Close()
	if err := a.kv.Close(); err != nil {
		slog.Error("local store close error", "error", err)
	}
}

func setupLogger(w io.Writer, cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
