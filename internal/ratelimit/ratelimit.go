// Package ratelimit implements the fixed-window request limiter used by the
// remote endpoints.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a client identified by key may make another request.
// Implementations that fail return allowed=true with the error, so callers
// fail open.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindow is an in-process limiter. A client's window starts with its
// first request and is reset lazily by the first request after it expires.
type FixedWindow struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[string]*window
	now     func() time.Time
}

// NewFixedWindow allows limit requests per period for each key.
func NewFixedWindow(limit int, period time.Duration) *FixedWindow {
	return &FixedWindow{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (f *FixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	w, ok := f.windows[key]
	if !ok || now.After(w.resetAt) {
		f.windows[key] = &window{count: 1, resetAt: now.Add(f.period)}
		return true, nil
	}
	if w.count >= f.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Prune drops expired windows. Their next request would reset them anyway.
func (f *FixedWindow) Prune() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	n := 0
	for k, w := range f.windows {
		if now.After(w.resetAt) {
			delete(f.windows, k)
			n++
		}
	}
	return n
}
