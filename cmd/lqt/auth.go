package main

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <password>",
	Short: "Unlock sync for this device",
	Long:  "Checks the password against APP_PASSWORD and, when it matches, enables sync and loads remote data.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Disable sync for this device",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	want := a.cfg.Auth.Password
	if want == "" {
		return fmt.Errorf("APP_PASSWORD is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(args[0]), []byte(want)) != 1 {
		return fmt.Errorf("incorrect password")
	}

	if err := a.kv.SetItem(ctx, localstore.KeyAuthenticated, "true"); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")

	if a.cfg.Sync.RemoteURL != "" {
		if a.sync.InitialLoad(ctx) {
			fmt.Fprintln(cmd.OutOrStdout(), "Remote data loaded.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No remote data loaded; working locally.")
		}
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if err := a.kv.RemoveItem(ctx, localstore.KeyAuthenticated); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}
