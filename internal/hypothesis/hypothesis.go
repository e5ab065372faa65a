// Package hypothesis stores IF/THEN/BECAUSE experiments and scores them.
package hypothesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/types"
	"github.com/hyperengineering/lifequality/internal/validation"
)

// ErrNotFound indicates no hypothesis has the requested id.
var ErrNotFound = errors.New("hypothesis not found")

// ValidationErrors is returned when a hypothesis fails its field checks.
type ValidationErrors []validation.ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "invalid hypothesis: " + strings.Join(parts, "; ")
}

// CalculatePriority combines the five scoring dimensions into a 1-10 value.
// High impact and confidence raise priority; high effort, risk and a long
// timeframe lower it.
func CalculatePriority(h types.EnhancedHypothesis) float64 {
	p := float64(h.Impact)*0.3 +
		float64(h.Confidence)*0.25 +
		float64(11-h.Effort)*0.2 +
		float64(11-h.Risk)*0.15 +
		float64(11-h.Timeframe)*0.1
	return types.RoundOne(p)
}

// ProgressPercent is the mean weekly progress rating as a share of the
// maximum rating of 4, in percent.
func ProgressPercent(h types.EnhancedHypothesis) float64 {
	if len(h.WeeklyProgress) == 0 {
		return 0
	}
	var sum int
	for _, p := range h.WeeklyProgress {
		sum += p.Rating
	}
	return types.RoundOne(float64(sum) / float64(len(h.WeeklyProgress)) / 4 * 100)
}

// Store persists hypotheses as a JSON array under the hypotheses key.
type Store struct {
	mu  sync.Mutex
	kv  localstore.Store
	now func() time.Time
}

// NewStore creates a Store over kv.
func NewStore(kv localstore.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// List returns all hypotheses, highest priority first.
func (s *Store) List(ctx context.Context) ([]types.EnhancedHypothesis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CalculatedPriority > all[j].CalculatedPriority
	})
	return all, nil
}

// Get returns the hypothesis with the given id.
func (s *Store) Get(ctx context.Context, id string) (types.EnhancedHypothesis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return types.EnhancedHypothesis{}, err
	}
	i := indexOf(all, id)
	if i < 0 {
		return types.EnhancedHypothesis{}, ErrNotFound
	}
	return all[i], nil
}

// Create validates h, assigns an id and priority, and appends it.
func (s *Store) Create(ctx context.Context, h types.EnhancedHypothesis) (types.EnhancedHypothesis, error) {
	if h.Status == "" {
		h.Status = types.HypothesisDraft
	}
	if h.WeeklyProgress == nil {
		h.WeeklyProgress = []types.WeeklyProgress{}
	}
	if errs := validation.ValidateStruct(h); len(errs) > 0 {
		return types.EnhancedHypothesis{}, ValidationErrors(errs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return types.EnhancedHypothesis{}, err
	}

	now := s.now().UTC()
	h.ID = ulid.Make().String()
	h.CalculatedPriority = CalculatePriority(h)
	h.CreatedAt = now
	h.UpdatedAt = now

	all = append(all, h)
	if err := s.save(ctx, all); err != nil {
		return types.EnhancedHypothesis{}, err
	}
	return h, nil
}

// RecordProgress sets the 0-4 rating for weekID, replacing any earlier
// entry for the same week.
func (s *Store) RecordProgress(ctx context.Context, id, weekID string, rating int, note string) (types.EnhancedHypothesis, error) {
	entry := types.WeeklyProgress{WeekID: weekID, Rating: rating, Note: note}
	if errs := validation.ValidateStruct(entry); len(errs) > 0 {
		return types.EnhancedHypothesis{}, ValidationErrors(errs)
	}

	return s.mutate(ctx, id, func(h *types.EnhancedHypothesis) {
		for i, p := range h.WeeklyProgress {
			if p.WeekID == weekID {
				h.WeeklyProgress[i] = entry
				return
			}
		}
		h.WeeklyProgress = append(h.WeeklyProgress, entry)
		sort.Slice(h.WeeklyProgress, func(i, j int) bool {
			return h.WeeklyProgress[i].WeekID < h.WeeklyProgress[j].WeekID
		})
	})
}

// SetStatus moves a hypothesis through its lifecycle.
func (s *Store) SetStatus(ctx context.Context, id string, status types.HypothesisStatus) (types.EnhancedHypothesis, error) {
	allowed := []string{
		string(types.HypothesisDraft), string(types.HypothesisActive),
		string(types.HypothesisCompleted), string(types.HypothesisAbandoned),
	}
	if err := validation.ValidateEnum("status", string(status), allowed); err != nil {
		return types.EnhancedHypothesis{}, ValidationErrors{*err}
	}
	return s.mutate(ctx, id, func(h *types.EnhancedHypothesis) {
		h.Status = status
	})
}

// Delete removes a hypothesis. Only explicit user action deletes.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(all, id)
	if i < 0 {
		return ErrNotFound
	}
	all = append(all[:i], all[i+1:]...)
	return s.save(ctx, all)
}

func (s *Store) mutate(ctx context.Context, id string, fn func(*types.EnhancedHypothesis)) (types.EnhancedHypothesis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return types.EnhancedHypothesis{}, err
	}
	i := indexOf(all, id)
	if i < 0 {
		return types.EnhancedHypothesis{}, ErrNotFound
	}

	fn(&all[i])
	all[i].CalculatedPriority = CalculatePriority(all[i])
	all[i].UpdatedAt = s.now().UTC()

	if err := s.save(ctx, all); err != nil {
		return types.EnhancedHypothesis{}, err
	}
	return all[i], nil
}

func (s *Store) load(ctx context.Context) ([]types.EnhancedHypothesis, error) {
	raw, err := s.kv.GetItem(ctx, localstore.KeyHypotheses)
	if errors.Is(err, localstore.ErrNotFound) {
		return []types.EnhancedHypothesis{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hypotheses: %w", err)
	}
	var all []types.EnhancedHypothesis
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil, fmt.Errorf("decode hypotheses: %w", err)
	}
	return all, nil
}

func (s *Store) save(ctx context.Context, all []types.EnhancedHypothesis) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode hypotheses: %w", err)
	}
	if err := s.kv.SetItem(ctx, localstore.KeyHypotheses, string(raw)); err != nil {
		return fmt.Errorf("write hypotheses: %w", err)
	}
	return nil
}

func indexOf(all []types.EnhancedHypothesis, id string) int {
	for i, h := range all {
		if h.ID == id {
			return i
		}
	}
	return -1
}
