package syncclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hyperengineering/lifequality/internal/localstore"
)

// ErrUnauthorized is returned when the server rejects the bearer token.
var ErrUnauthorized = errors.New("sync server rejected credentials")

// Payload is the multi-section sync document: section name to JSON value.
type Payload map[string]json.RawMessage

// Section names used on the wire.
const (
	SectionRatings     = "ratings"
	SectionHypotheses  = "hypotheses"
	SectionSubjects    = "subjects"
	SectionGoals       = "goals"
	SectionChatHistory = "chat_history"
	SectionPreferences = "preferences"
)

// Section pairs a wire section with the local key that stores it.
type Section struct {
	Name string
	Key  string
}

// Sections lists every synchronized section in a stable order.
var Sections = []Section{
	{SectionRatings, localstore.KeyWeeklyRatings},
	{SectionHypotheses, localstore.KeyHypotheses},
	{SectionSubjects, localstore.KeySubjects},
	{SectionGoals, localstore.KeyGoals},
	{SectionChatHistory, localstore.KeyAIChatHistory},
	{SectionPreferences, localstore.KeyUserPreferences},
}

// Config configures a Client.
type Config struct {
	// BaseURL is the sync server root, e.g. https://lqt.example.com.
	// An empty BaseURL disables all remote operations.
	BaseURL string

	// Token is sent as the bearer credential.
	Token string

	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client

	// OnApplied is called after remote data has been written locally, so
	// in-memory caches such as the rating store can reload.
	OnApplied func()
}

type pushRequest struct {
	Data Payload `json:"data"`
}

type fetchResponse struct {
	Success bool    `json:"success"`
	Data    Payload `json:"data"`
}
