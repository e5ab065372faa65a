package main

import (
	"context"
	"fmt"

	"github.com/hyperengineering/lifequality/internal/types"
	"github.com/spf13/cobra"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Summarize all recorded weeks",
	Args:  cobra.NoArgs,
	RunE:  runAnalytics,
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	an := a.ratings.ComputeAnalytics()
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), an)
	}

	out := cmd.OutOrStdout()
	if an.TotalWeeks == 0 {
		fmt.Fprintln(out, "No weeks recorded.")
		return nil
	}

	fmt.Fprintf(out, "Weeks: %d  Average: %.1f\n", an.TotalWeeks, an.AverageScore)
	if an.BestWeek != nil {
		fmt.Fprintf(out, "Best:  %s (%.1f)\n", an.BestWeek.WeekID, an.BestWeek.OverallScore)
	}
	if an.WorstWeek != nil {
		fmt.Fprintf(out, "Worst: %s (%.1f)\n", an.WorstWeek.WeekID, an.WorstWeek.OverallScore)
	}

	w := newTabWriter(out)
	fmt.Fprintln(w, "\nMETRIC\tAVERAGE\tWEEKS")
	for _, id := range sortedKeys(an.MetricAverages) {
		m := an.MetricAverages[id]
		fmt.Fprintf(w, "%s\t%.1f\t%d\n", id, m.Average, m.Count)
	}
	w.Flush()

	fmt.Fprint(out, "\nMoods:")
	for _, m := range types.Moods {
		fmt.Fprintf(out, " %s=%d", m, an.MoodDistribution[m])
	}
	fmt.Fprintln(out)
	return nil
}
