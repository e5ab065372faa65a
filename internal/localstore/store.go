// Package localstore is the key/value document store that backs all client-side state.
// Every value is a string, usually a JSON document, addressed by one of the fixed keys below.
package localstore

import "context"

// Fixed storage keys.
const (
	KeyWeeklyRatings   = "lqt_weekly_ratings"
	KeyHypotheses      = "lqt_hypotheses"
	KeySubjects        = "lqt_subjects"
	KeyAIInsights      = "lqt_ai_insights"
	KeyAIChatHistory   = "lqt_ai_chat_history"
	KeyGoals           = "lqt_goals"
	KeyUserPreferences = "lqt_user_preferences"

	// Session flags.
	KeyAuthenticated = "lqt_authenticated"
	KeyDemoMode      = "lqt_demo_mode"
	KeyDataSeeded    = "lqt_data_seeded"
)

// AllKeys lists every key the application owns, in a stable order.
var AllKeys = []string{
	KeyWeeklyRatings,
	KeyHypotheses,
	KeySubjects,
	KeyAIInsights,
	KeyAIChatHistory,
	KeyGoals,
	KeyUserPreferences,
	KeyAuthenticated,
	KeyDemoMode,
	KeyDataSeeded,
}

// Store defines the contract for local key/value persistence.
type Store interface {
	// GetItem returns the value for key, or ErrNotFound.
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// IsAuthenticated reports whether the session flag is set.
func IsAuthenticated(ctx context.Context, s Store) bool {
	v, err := s.GetItem(ctx, KeyAuthenticated)
	return err == nil && v == "true"
}
