package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hyperengineering/lifequality/internal/types"
	"github.com/hyperengineering/lifequality/internal/validation"
	"github.com/spf13/cobra"
)

var (
	rateDate string
	rateNote string
)

var rateCmd = &cobra.Command{
	Use:   "rate <metric> <value>",
	Short: "Rate one metric for the current (or given) week",
	Example: `  lqt rate health 7
  lqt rate sleep 4 --date 2024-03-12 --note "new baby"`,
	Args: cobra.ExactArgs(2),
	RunE: runRate,
}

func init() {
	rateCmd.Flags().StringVar(&rateDate, "date", "", "Any day of the week to rate, yyyy-mm-dd (default today)")
	rateCmd.Flags().StringVar(&rateNote, "note", "", "Note for this metric; an empty value clears it")
}

func runRate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	metric := args[0]
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid rating %q: %w", args[1], err)
	}

	var c validation.Collector
	c.Add(validation.ValidateMetricID("metric", metric))
	c.Add(validation.ValidateRating("value", value))
	if cmd.Flags().Changed("note") {
		c.Add(validation.ValidateNote("note", rateNote))
	}
	if err := c.Err(); err != nil {
		return err
	}

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if !a.ratings.Accepts(metric) {
		return fmt.Errorf("metric %q is not in the configured catalog", metric)
	}

	date, err := resolveDate(a, rateDate)
	if err != nil {
		return err
	}

	var note *string
	if cmd.Flags().Changed("note") {
		note = &rateNote
	}

	week := a.ratings.SetMetricRating(ctx, date, metric, value, note)
	a.scheduleSync()

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), week)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rated %s=%d for week %s (overall %.1f, %s)\n",
		metric, week.Ratings[metric], week.ID, week.OverallScore, week.Mood)
	return nil
}

// resolveDate parses a yyyy-mm-dd flag in the store's location, defaulting
// to now.
func resolveDate(a *app, s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := a.ratings.Calendar().ParseWeekID(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want yyyy-mm-dd", s)
	}
	return t, nil
}

func printWeek(cmd *cobra.Command, w types.WeeklyRating) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Week %s (week %d, %s to %s)\n", w.ID, w.WeekNumber,
		w.StartDate.Format("Jan 2"), w.EndDate.Format("Jan 2"))
	fmt.Fprintf(out, "Overall: %.1f (%s)\n", w.OverallScore, w.Mood)

	if len(w.Ratings) > 0 {
		tw := newTabWriter(out)
		fmt.Fprintln(tw, "METRIC\tRATING\tNOTE")
		for _, id := range sortedKeys(w.Ratings) {
			note := w.Notes[id]
			if note == "" {
				note = "-"
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\n", id, w.Ratings[id], note)
		}
		tw.Flush()
	}
	for _, e := range w.KeyEvents {
		fmt.Fprintf(out, "  * %s\n", e)
	}
}
