package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/worker"
	"github.com/spf13/cobra"
)

var syncWatch bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync local data with the remote server",
	Long: "Merges local data with the remote document and pushes the result.\n" +
		"With --watch, keeps syncing every sync.interval until interrupted.",
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "Keep syncing periodically until interrupted")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := checkSyncReady(ctx, a); err != nil {
		return err
	}

	if !syncWatch {
		if !a.sync.FullSync(ctx) {
			return fmt.Errorf("sync failed; see log for details")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Sync complete.")
		return nil
	}

	a.sync.InitialLoad(ctx)
	interval := time.Duration(a.cfg.Sync.Interval)
	fmt.Fprintf(cmd.OutOrStdout(), "Syncing every %s. Press Ctrl+C to stop.\n", interval)
	worker.NewSyncWorker(a.sync, interval).Run(ctx)
	return nil
}

var errNoRemote = errors.New("no remote configured; set LQT_REMOTE_URL or sync.remote_url")

func checkSyncReady(ctx context.Context, a *app) error {
	if a.cfg.Sync.RemoteURL == "" {
		return errNoRemote
	}
	if !localstore.IsAuthenticated(ctx, a.kv) {
		return fmt.Errorf("not logged in; run 'lqt login' first")
	}
	return nil
}
