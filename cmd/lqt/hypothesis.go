package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hyperengineering/lifequality/internal/hypothesis"
	"github.com/hyperengineering/lifequality/internal/types"
	"github.com/spf13/cobra"
)

var (
	hypTitle      string
	hypMetric     string
	hypTarget     float64
	hypCurrent    float64
	hypIf         string
	hypThen       string
	hypBecause    string
	hypImpact     int
	hypEffort     int
	hypConfidence int
	hypRisk       int
	hypTimeframe  int

	progressWeek string
	progressNote string
)

var hypothesisCmd = &cobra.Command{
	Use:     "hypothesis",
	Aliases: []string{"hyp"},
	Short:   "Manage IF/THEN/BECAUSE experiments",
}

var hypothesisAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a hypothesis",
	Example: `  lqt hypothesis add --title "Earlier nights" --metric sleep --target 8 \
    --if "I stop screens at 22:00" --then "my sleep rating rises" --because "blue light delays sleep"`,
	Args: cobra.NoArgs,
	RunE: runHypothesisAdd,
}

var hypothesisListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hypotheses by priority",
	Args:  cobra.NoArgs,
	RunE:  runHypothesisList,
}

var hypothesisProgressCmd = &cobra.Command{
	Use:   "progress <id> <rating>",
	Short: "Record a 0-4 progress rating for a week",
	Args:  cobra.ExactArgs(2),
	RunE:  runHypothesisProgress,
}

var hypothesisStatusCmd = &cobra.Command{
	Use:       "status <id> <draft|active|completed|abandoned>",
	Short:     "Change a hypothesis status",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"draft", "active", "completed", "abandoned"},
	RunE:      runHypothesisStatus,
}

var hypothesisDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a hypothesis",
	Args:  cobra.ExactArgs(1),
	RunE:  runHypothesisDelete,
}

func init() {
	f := hypothesisAddCmd.Flags()
	f.StringVar(&hypTitle, "title", "", "Short title (required)")
	f.StringVar(&hypMetric, "metric", "", "Metric the experiment should move (required)")
	f.Float64Var(&hypTarget, "target", 8, "Target metric value, 1-10")
	f.Float64Var(&hypCurrent, "current", 0, "Current metric value, 0-10")
	f.StringVar(&hypIf, "if", "", "IF statement (required)")
	f.StringVar(&hypThen, "then", "", "THEN statement (required)")
	f.StringVar(&hypBecause, "because", "", "BECAUSE statement (required)")
	f.IntVar(&hypImpact, "impact", 5, "Expected impact, 1-10")
	f.IntVar(&hypEffort, "effort", 5, "Required effort, 1-10")
	f.IntVar(&hypConfidence, "confidence", 5, "Confidence it works, 1-10")
	f.IntVar(&hypRisk, "risk", 5, "Risk, 1-10")
	f.IntVar(&hypTimeframe, "timeframe", 5, "Time to see results, 1-10")

	hypothesisProgressCmd.Flags().StringVar(&progressWeek, "date", "", "Any day of the week to record, yyyy-mm-dd (default today)")
	hypothesisProgressCmd.Flags().StringVar(&progressNote, "note", "", "Progress note")

	hypothesisCmd.AddCommand(hypothesisAddCmd)
	hypothesisCmd.AddCommand(hypothesisListCmd)
	hypothesisCmd.AddCommand(hypothesisProgressCmd)
	hypothesisCmd.AddCommand(hypothesisStatusCmd)
	hypothesisCmd.AddCommand(hypothesisDeleteCmd)
}

func runHypothesisAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	h, err := a.hypotheses.Create(ctx, types.EnhancedHypothesis{
		Title: hypTitle,
		Goal: types.HypothesisGoal{
			MetricID:     hypMetric,
			TargetValue:  hypTarget,
			CurrentValue: hypCurrent,
		},
		IfStatement:      hypIf,
		ThenStatement:    hypThen,
		BecauseStatement: hypBecause,
		Impact:           hypImpact,
		Effort:           hypEffort,
		Confidence:       hypConfidence,
		Risk:             hypRisk,
		Timeframe:        hypTimeframe,
	})
	if err != nil {
		return err
	}
	a.scheduleSync()

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), h)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created hypothesis %s (priority %.1f)\n", h.ID, h.CalculatedPriority)
	return nil
}

func runHypothesisList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	all, err := a.hypotheses.List(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"hypotheses": all,
			"total":      len(all),
		})
	}

	if len(all) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No hypotheses found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tPRIORITY\tSTATUS\tMETRIC\tPROGRESS\tTITLE")
	for _, h := range all {
		fmt.Fprintf(w, "%s\t%.1f\t%s\t%s\t%.0f%%\t%s\n",
			h.ID, h.CalculatedPriority, h.Status, h.Goal.MetricID,
			hypothesis.ProgressPercent(h), h.Title)
	}
	w.Flush()
	return nil
}

func runHypothesisProgress(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid progress rating %q: want 0-4", args[1])
	}

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	date, err := resolveDate(a, progressWeek)
	if err != nil {
		return err
	}

	h, err := a.hypotheses.RecordProgress(ctx, args[0], a.ratings.WeekID(date), rating, progressNote)
	if err != nil {
		return err
	}
	a.scheduleSync()

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), h)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded progress for %s: %.0f%% overall\n",
		h.Title, hypothesis.ProgressPercent(h))
	return nil
}

func runHypothesisStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	h, err := a.hypotheses.SetStatus(ctx, args[0], types.HypothesisStatus(args[1]))
	if err != nil {
		return err
	}
	a.scheduleSync()

	fmt.Fprintf(cmd.OutOrStdout(), "Hypothesis %s is now %s\n", h.ID, h.Status)
	return nil
}

func runHypothesisDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if err := a.hypotheses.Delete(ctx, args[0]); err != nil {
		return err
	}
	a.scheduleSync()

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted hypothesis %s\n", args[0])
	return nil
}
