package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/spf13/cobra"
)

// exportVersion is the version of the export file layout.
const exportVersion = 1

// exportFile is the on-disk backup layout. Values that are not JSON are
// stored as JSON strings.
type exportFile struct {
	Version    int                        `json:"version"`
	ExportedAt time.Time                  `json:"exportedAt"`
	Data       map[string]json.RawMessage `json:"data"`
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write all local data to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore local data from an export file",
	Long:  "Overwrites every key present in the file. Keys absent from the file are left alone.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

// exportable reports whether key belongs in a backup. The session flag is
// left out so a restored backup never logs a user in.
func exportable(key string) bool {
	return key != localstore.KeyAuthenticated && slices.Contains(localstore.AllKeys, key)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	out := exportFile{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Data:       map[string]json.RawMessage{},
	}
	for _, key := range localstore.AllKeys {
		if !exportable(key) {
			continue
		}
		v, err := a.kv.GetItem(ctx, key)
		if errors.Is(err, localstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		if json.Valid([]byte(v)) {
			out.Data[key] = json.RawMessage(v)
		} else {
			quoted, _ := json.Marshal(v)
			out.Data[key] = quoted
		}
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(args[0], raw, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d keys to %s\n", len(out.Data), args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	var in exportFile
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("decode import: %w", err)
	}
	if in.Version > exportVersion {
		return fmt.Errorf("unsupported export version %d", in.Version)
	}

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	n := 0
	for _, key := range sortedKeys(in.Data) {
		if !exportable(key) {
			slog.Warn("skipping unknown key", "component", "cli", "action", "import", "store_key", key)
			continue
		}
		value := string(in.Data[key])
		var s string
		if err := json.Unmarshal(in.Data[key], &s); err == nil {
			value = s
		}
		if err := a.kv.SetItem(ctx, key, value); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		n++
	}

	a.ratings.Reload(ctx)
	a.scheduleSync()

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d keys from %s\n", n, args[0])
	return nil
}
