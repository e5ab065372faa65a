// Package insights asks a chat model to interpret rating analytics and
// stores the structured observations it returns.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/types"
)

// ErrNoData is returned when there is nothing to analyze.
var ErrNoData = errors.New("no rated weeks to analyze")

// Categories accepted from the model. Anything else is filed as "pattern".
var Categories = []string{"pattern", "correlation", "recommendation", "warning", "achievement"}

const maxInsights = 8

const systemPrompt = `You analyze a person's weekly life-quality ratings (1-10 per metric).
Reply with a JSON object of the form {"insights":[{"title":string,"description":string,` +
	`"category":"pattern"|"correlation"|"recommendation"|"warning"|"achievement",` +
	`"confidence":number between 0 and 1,"metricIds":[string]}]}.
Return at most 8 insights. Be specific, kind and practical. Reply with JSON only.`

// ChatService defines the interface for making chat completion calls.
// This abstraction enables testing without calling the real OpenAI API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Generator turns analytics into insights and persists the latest set.
type Generator struct {
	chat  ChatService
	model openai.ChatModel
	kv    localstore.Store
	now   func() time.Time
}

// NewOpenAI creates a Generator backed by the OpenAI API. An empty baseURL
// uses the default endpoint.
func NewOpenAI(apiKey, model, baseURL string, kv localstore.Store) *Generator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return NewGenerator(client.Chat.Completions, model, kv)
}

// NewGenerator creates a Generator over an arbitrary chat service.
func NewGenerator(chat ChatService, model string, kv localstore.Store) *Generator {
	return &Generator{
		chat:  chat,
		model: openai.ChatModel(model),
		kv:    kv,
		now:   time.Now,
	}
}

// Generate requests insights for a, saves them under the insights key and
// returns them. A failed save is logged; the insights are still returned.
func (g *Generator) Generate(ctx context.Context, a types.Analytics) ([]types.Insight, error) {
	if a.TotalWeeks == 0 {
		return nil, ErrNoData
	}

	summary, err := json.Marshal(promptData(a))
	if err != nil {
		return nil, fmt.Errorf("encode analytics: %w", err)
	}

	resp, err := g.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Here are my analytics:\n" + string(summary)),
		}),
		Model:       openai.F(g.model),
		Temperature: openai.F(0.4),
	})
	if err != nil {
		return nil, fmt.Errorf("insight generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("insight generation failed: no choices returned")
	}

	list, err := Parse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	set := types.InsightSet{GeneratedAt: g.now().UTC(), Model: string(g.model), Insights: list}
	if err := g.save(ctx, set); err != nil {
		slog.Error("save insights failed",
			"component", "insights",
			"store_key", localstore.KeyAIInsights,
			"error", err,
		)
	}

	slog.Info("insights generated", "component", "insights", "count", len(list), "model", g.model)
	return list, nil
}

// Latest returns the most recently saved insight set.
func (g *Generator) Latest(ctx context.Context) (types.InsightSet, error) {
	raw, err := g.kv.GetItem(ctx, localstore.KeyAIInsights)
	if err != nil {
		return types.InsightSet{}, err
	}
	var set types.InsightSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return types.InsightSet{}, fmt.Errorf("decode insights: %w", err)
	}
	return set, nil
}

func (g *Generator) save(ctx context.Context, set types.InsightSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return g.kv.SetItem(ctx, localstore.KeyAIInsights, string(raw))
}

// Parse extracts insights from a model reply. Markdown code fences around
// the JSON are tolerated. Entries without a title are dropped, unknown
// categories become "pattern" and confidence is clamped to [0, 1].
func Parse(content string) ([]types.Insight, error) {
	body := stripFences(content)

	var reply struct {
		Insights []types.Insight `json:"insights"`
	}
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, fmt.Errorf("parse insight reply: %w", err)
	}

	out := make([]types.Insight, 0, len(reply.Insights))
	for _, in := range reply.Insights {
		in.Title = strings.TrimSpace(in.Title)
		if in.Title == "" {
			continue
		}
		if !knownCategory(in.Category) {
			in.Category = "pattern"
		}
		in.Confidence = min(max(in.Confidence, 0), 1)
		out = append(out, in)
		if len(out) == maxInsights {
			break
		}
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func knownCategory(c string) bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// promptData trims analytics to what the model needs. Gap weeks are left
// out of the trend.
func promptData(a types.Analytics) map[string]any {
	trend := make([]map[string]any, 0, len(a.TrendsOverTime))
	for _, p := range a.TrendsOverTime {
		if !p.HasData || p.AverageScore == nil {
			continue
		}
		trend = append(trend, map[string]any{"week": p.WeekID, "score": *p.AverageScore})
	}
	return map[string]any{
		"totalWeeks":       a.TotalWeeks,
		"averageScore":     a.AverageScore,
		"metricAverages":   a.MetricAverages,
		"bestWeek":         a.BestWeek,
		"worstWeek":        a.WorstWeek,
		"moodDistribution": a.MoodDistribution,
		"trend":            trend,
	}
}
