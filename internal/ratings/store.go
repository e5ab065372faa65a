// Package ratings owns the weekly rating store: one WeeklyRating per calendar
// week, persisted as a single JSON document in local storage after every mutation.
package ratings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/types"
	"github.com/hyperengineering/lifequality/internal/validation"
)

// Update is a partial change to a week. Nil maps and slices and an empty Mood
// leave the existing value untouched; non-nil values replace it.
type Update struct {
	Ratings   map[string]float64
	Notes     map[string]string
	Mood      types.Mood
	KeyEvents []string
}

// Option configures a Store.
type Option func(*Store)

// WithWeekStart sets the first day of the week. Default Monday.
func WithWeekStart(d time.Weekday) Option {
	return func(s *Store) { s.cal.WeekStart = d }
}

// WithLocation sets the location week boundaries are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.cal.Location = loc }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCatalog restricts accepted metric ids to the given set.
func WithCatalog(ids []string) Option {
	return func(s *Store) {
		s.catalog = make(map[string]bool, len(ids))
		for _, id := range ids {
			s.catalog[id] = true
		}
	}
}

// Accepts reports whether metricID is a valid id in the configured catalog.
// Without a catalog every valid id is accepted.
func (s *Store) Accepts(metricID string) bool {
	if validation.ValidateMetricID("metric", metricID) != nil {
		return false
	}
	return s.catalog == nil || s.catalog[metricID]
}

// Store is the local rating store. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	kv      localstore.Store
	cal     Calendar
	now     func() time.Time
	catalog map[string]bool
	data    types.WeeklyRatingData
	loading bool
}

// New creates a Store over kv and performs the initial load.
func New(ctx context.Context, kv localstore.Store, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		cal:     Calendar{WeekStart: time.Monday},
		now:     time.Now,
		data:    types.WeeklyRatingData{},
		loading: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	s.load(ctx)
	s.loading = false
	s.mu.Unlock()

	return s
}

// IsLoading reports whether the initial load is still in progress.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Calendar returns the calendar used to derive week ids.
func (s *Store) Calendar() Calendar {
	return s.cal
}

// WeekID returns the canonical id of the week containing date.
func (s *Store) WeekID(date time.Time) string {
	return s.cal.WeekID(date)
}

// Reload discards the in-memory view and re-reads local storage.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
}

// Get returns a copy of the week with the given id.
func (s *Store) Get(id string) (types.WeeklyRating, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.data[id]
	if !ok {
		return types.WeeklyRating{}, false
	}
	return cloneWeek(w), true
}

// List returns all weeks ordered by start date.
func (s *Store) List() []types.WeeklyRating {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Data returns a copy of the whole store.
func (s *Store) Data() types.WeeklyRatingData {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(types.WeeklyRatingData, len(s.data))
	for id, w := range s.data {
		out[id] = cloneWeek(w)
	}
	return out
}

// Upsert merges u onto the week containing date, creating it if needed, and
// persists the store. A failed write is logged and otherwise ignored.
func (s *Store) Upsert(ctx context.Context, date time.Time, u Update) types.WeeklyRating {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(ctx, date, u)
}

// SetMetricRating sets one metric (and optionally its note) on the week
// containing date, leaving other metrics and notes untouched. An empty note
// clears the metric's note.
func (s *Store) SetMetricRating(ctx context.Context, date time.Time, metricID string, value float64, note *string) types.WeeklyRating {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[s.cal.WeekID(date)]

	ratings := make(map[string]float64, len(existing.Ratings)+1)
	for k, v := range existing.Ratings {
		ratings[k] = float64(v)
	}
	ratings[metricID] = value

	var notes map[string]string
	if note != nil {
		notes = make(map[string]string, len(existing.Notes)+1)
		for k, v := range existing.Notes {
			notes[k] = v
		}
		if *note == "" {
			delete(notes, metricID)
		} else {
			notes[metricID] = *note
		}
	}

	return s.upsertLocked(ctx, date, Update{Ratings: ratings, Notes: notes})
}

func (s *Store) upsertLocked(ctx context.Context, date time.Time, u Update) types.WeeklyRating {
	id := s.cal.WeekID(date)
	week, exists := s.data[id]
	if !exists {
		week = s.newWeek(date)
	}

	s.apply(&week, u)
	week.UpdatedAt = s.now()
	s.data[id] = week

	s.persist(ctx)
	return cloneWeek(week)
}

// Delete removes the week with the given id. It reports whether the week existed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return false
	}
	delete(s.data, id)
	s.persist(ctx)
	return true
}

// newWeek builds an empty record for the week containing date.
func (s *Store) newWeek(date time.Time) types.WeeklyRating {
	start := s.cal.StartOfWeek(date)
	now := s.now()
	return types.WeeklyRating{
		ID:         start.Format(WeekIDLayout),
		WeekNumber: ISOWeek(start),
		StartDate:  start,
		EndDate:    s.cal.EndOfWeek(start),
		Ratings:    map[string]int{},
		Notes:      map[string]string{},
		Mood:       types.MoodTerrible,
		KeyEvents:  []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// apply sanitizes u and merges it onto week, then recomputes derived fields.
func (s *Store) apply(week *types.WeeklyRating, u Update) {
	if u.Ratings != nil {
		week.Ratings = s.sanitizeRatings(week.ID, u.Ratings)
	}
	if u.Notes != nil {
		week.Notes = sanitizeNotes(week.ID, u.Notes)
	}
	if u.KeyEvents != nil {
		week.KeyEvents = sanitizeEvents(week.ID, u.KeyEvents)
	}

	week.OverallScore = OverallScore(week.Ratings)
	if u.Mood != "" && u.Mood.Valid() {
		week.Mood = u.Mood
	} else {
		if u.Mood != "" {
			slog.Warn("dropping invalid mood",
				"component", "ratings",
				"week_id", week.ID,
				"mood", u.Mood,
			)
		}
		week.Mood = types.MoodFromScore(week.OverallScore)
	}
}

func (s *Store) sanitizeRatings(weekID string, in map[string]float64) map[string]int {
	out := make(map[string]int, len(in))
	for metric, value := range in {
		field := "ratings." + metric
		if err := validation.ValidateMetricID(field, metric); err != nil {
			logDropped(weekID, err)
			continue
		}
		if s.catalog != nil && !s.catalog[metric] {
			logDropped(weekID, &validation.ValidationError{Field: field, Message: "unknown metric"})
			continue
		}
		if err := validation.ValidateRating(field, value); err != nil {
			logDropped(weekID, err)
			continue
		}
		out[metric] = int(value)
	}
	return out
}

func sanitizeNotes(weekID string, in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for metric, note := range in {
		field := "notes." + metric
		if err := validation.ValidateMetricID(field, metric); err != nil {
			logDropped(weekID, err)
			continue
		}
		if err := validation.ValidateNote(field, note); err != nil {
			logDropped(weekID, err)
			continue
		}
		out[metric] = note
	}
	return out
}

func sanitizeEvents(weekID string, in []string) []string {
	out := make([]string, 0, len(in))
	for i, ev := range in {
		ev = strings.TrimSpace(ev)
		if ev == "" {
			continue
		}
		field := fmt.Sprintf("keyEvents[%d]", i)
		if err := validation.ValidateNote(field, ev); err != nil {
			logDropped(weekID, err)
			continue
		}
		if err := validation.ValidateMaxLength(field, ev, validation.MaxEventLength); err != nil {
			logDropped(weekID, err)
			continue
		}
		if len(out) == validation.MaxKeyEvents {
			logDropped(weekID, &validation.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("exceeds maximum of %d events", validation.MaxKeyEvents),
			})
			continue
		}
		out = append(out, ev)
	}
	return out
}

func logDropped(weekID string, err *validation.ValidationError) {
	slog.Warn("dropping invalid field",
		"component", "ratings",
		"week_id", weekID,
		"field", err.Field,
		"reason", err.Message,
	)
}

// OverallScore is the mean of the ratings rounded to one decimal, ignoring
// negative values. An empty map scores 0.
func OverallScore(ratings map[string]int) float64 {
	var sum float64
	var n int
	for _, v := range ratings {
		if v < 0 {
			continue
		}
		sum += float64(v)
		n++
	}
	if n == 0 {
		return 0
	}
	return types.RoundOne(sum / float64(n))
}

// persist writes the whole store. Caller must hold s.mu.
func (s *Store) persist(ctx context.Context) {
	raw, err := json.Marshal(s.data)
	if err != nil {
		slog.Error("failed to encode weekly ratings",
			"component", "ratings",
			"action", "persist_failed",
			"error", err,
		)
		return
	}
	if err := s.kv.SetItem(ctx, localstore.KeyWeeklyRatings, string(raw)); err != nil {
		slog.Error("failed to persist weekly ratings",
			"component", "ratings",
			"action", "persist_failed",
			"store_key", localstore.KeyWeeklyRatings,
			"error", err,
		)
	}
}

// load replaces s.data from local storage. Caller must hold s.mu.
func (s *Store) load(ctx context.Context) {
	s.data = types.WeeklyRatingData{}

	raw, err := s.kv.GetItem(ctx, localstore.KeyWeeklyRatings)
	if errors.Is(err, localstore.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Error("failed to read weekly ratings",
			"component", "ratings",
			"action", "load_failed",
			"error", err,
		)
		return
	}

	var stored types.WeeklyRatingData
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		slog.Warn("discarding unreadable weekly ratings",
			"component", "ratings",
			"action", "load_failed",
			"error", err,
		)
		return
	}

	for key, week := range stored {
		normalized, ok := s.normalize(key, week)
		if !ok {
			slog.Warn("dropping week without a usable start date",
				"component", "ratings",
				"week_id", key,
			)
			continue
		}
		s.data[normalized.ID] = normalized
	}
}

// normalize re-derives id, boundaries and week number from the start date so
// the id can never drift from it. Records without a start date fall back to
// parsing their key.
func (s *Store) normalize(key string, w types.WeeklyRating) (types.WeeklyRating, bool) {
	start := w.StartDate
	if start.IsZero() {
		parsed, err := s.cal.ParseWeekID(key)
		if err != nil {
			return w, false
		}
		start = parsed
	}
	start = s.cal.StartOfWeek(start)

	w.ID = start.Format(WeekIDLayout)
	w.StartDate = start
	w.EndDate = s.cal.EndOfWeek(start)
	w.WeekNumber = ISOWeek(start)
	if w.Ratings == nil {
		w.Ratings = map[string]int{}
	}
	if w.Notes == nil {
		w.Notes = map[string]string{}
	}
	if w.KeyEvents == nil {
		w.KeyEvents = []string{}
	}
	if !w.Mood.Valid() {
		w.Mood = types.MoodFromScore(w.OverallScore)
	}
	return w, true
}

func (s *Store) sortedLocked() []types.WeeklyRating {
	weeks := make([]types.WeeklyRating, 0, len(s.data))
	for _, w := range s.data {
		weeks = append(weeks, cloneWeek(w))
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].StartDate.Before(weeks[j].StartDate)
	})
	return weeks
}

func cloneWeek(w types.WeeklyRating) types.WeeklyRating {
	ratings := make(map[string]int, len(w.Ratings))
	for k, v := range w.Ratings {
		ratings[k] = v
	}
	notes := make(map[string]string, len(w.Notes))
	for k, v := range w.Notes {
		notes[k] = v
	}
	w.Ratings = ratings
	w.Notes = notes
	w.KeyEvents = append([]string{}, w.KeyEvents...)
	return w
}
