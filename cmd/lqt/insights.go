package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperengineering/lifequality/internal/insights"
	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/types"
	"github.com/spf13/cobra"
)

var insightsLatest bool

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate AI insights from your analytics",
	Long: "Sends the analytics summary to the configured OpenAI model and stores the returned insights.\n" +
		"Requires OPENAI_API_KEY unless --latest is given.",
	Args: cobra.NoArgs,
	RunE: runInsights,
}

func init() {
	insightsCmd.Flags().BoolVar(&insightsLatest, "latest", false, "Show the last generated insights without calling the API")
}

func runInsights(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	cfg := a.cfg.Insights
	gen := insights.NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, a.kv)

	if insightsLatest {
		set, err := gen.Latest(ctx)
		if errors.Is(err, localstore.ErrNotFound) {
			return fmt.Errorf("no insights generated yet")
		}
		if err != nil {
			return err
		}
		return printInsights(cmd, set.Insights)
	}

	if cfg.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required to generate insights")
	}

	list, err := gen.Generate(ctx, a.ratings.ComputeAnalytics())
	if errors.Is(err, insights.ErrNoData) {
		return fmt.Errorf("rate at least one week before generating insights")
	}
	if err != nil {
		return err
	}
	return printInsights(cmd, list)
}

func printInsights(cmd *cobra.Command, list []types.Insight) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{"insights": list})
	}
	out := cmd.OutOrStdout()
	for _, in := range list {
		fmt.Fprintf(out, "[%s %.0f%%] %s\n", in.Category, in.Confidence*100, in.Title)
		if in.Description != "" {
			fmt.Fprintf(out, "    %s\n", in.Description)
		}
	}
	return nil
}
