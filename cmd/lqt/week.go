package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Inspect and delete recorded weeks",
}

var weekShowCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Show the week containing date (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWeekShow,
}

var weekListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded weeks",
	Args:  cobra.NoArgs,
	RunE:  runWeekList,
}

var weekDeleteCmd = &cobra.Command{
	Use:   "delete <week-id>",
	Short: "Delete a recorded week",
	Args:  cobra.ExactArgs(1),
	RunE:  runWeekDelete,
}

func init() {
	weekCmd.AddCommand(weekShowCmd)
	weekCmd.AddCommand(weekListCmd)
	weekCmd.AddCommand(weekDeleteCmd)
}

func runWeekShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	var day string
	if len(args) == 1 {
		day = args[0]
	}
	date, err := resolveDate(a, day)
	if err != nil {
		return err
	}

	id := a.ratings.WeekID(date)
	week, ok := a.ratings.Get(id)
	if !ok {
		return fmt.Errorf("no ratings for week %s", id)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), week)
	}
	printWeek(cmd, week)
	return nil
}

func runWeekList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	weeks := a.ratings.List()

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"weeks": weeks,
			"total": len(weeks),
		})
	}

	if len(weeks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No weeks recorded.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "WEEK\tNO\tOVERALL\tMOOD\tMETRICS")
	for _, wk := range weeks {
		fmt.Fprintf(w, "%s\t%d\t%.1f\t%s\t%d\n",
			wk.ID, wk.WeekNumber, wk.OverallScore, wk.Mood, len(wk.Ratings))
	}
	w.Flush()
	return nil
}

func runWeekDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if !a.ratings.Delete(ctx, args[0]) {
		return fmt.Errorf("week %s not found", args[0])
	}
	a.scheduleSync()

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted week %s\n", args[0])
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
