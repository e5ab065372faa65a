package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(limit int) (*FixedWindow, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	f := NewFixedWindow(limit, time.Minute)
	f.now = clock.now
	return f, clock
}

func TestFixedWindow_LimitsPerKey(t *testing.T) {
	f, _ := newTestLimiter(60)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		if ok, _ := f.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
	if ok, _ := f.Allow(ctx, "1.2.3.4"); ok {
		t.Error("61st request allowed, want denied")
	}
	if ok, _ := f.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("other client denied, want allowed")
	}
}

func TestFixedWindow_LazyReset(t *testing.T) {
	f, clock := newTestLimiter(2)
	ctx := context.Background()

	f.Allow(ctx, "k")
	f.Allow(ctx, "k")
	if ok, _ := f.Allow(ctx, "k"); ok {
		t.Fatal("third request allowed inside the window")
	}

	clock.t = clock.t.Add(time.Minute)
	if ok, _ := f.Allow(ctx, "k"); ok {
		t.Error("request at the exact reset time allowed, want denied")
	}

	clock.t = clock.t.Add(time.Millisecond)
	if ok, _ := f.Allow(ctx, "k"); !ok {
		t.Error("request after the window denied, want allowed")
	}
}

func TestFixedWindow_Prune(t *testing.T) {
	f, clock := newTestLimiter(5)
	ctx := context.Background()
	f.Allow(ctx, "a")
	clock.t = clock.t.Add(30 * time.Second)
	f.Allow(ctx, "b")

	clock.t = clock.t.Add(45 * time.Second)
	if n := f.Prune(); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if _, ok := f.windows["b"]; !ok {
		t.Error("live window pruned")
	}
}

// mockCounter records calls and returns canned results.
type mockCounter struct {
	counts    map[string]int64
	expires   map[string]time.Duration
	incrErr   error
	expireErr error
}

func newMockCounter() *mockCounter {
	return &mockCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (m *mockCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if m.incrErr != nil {
		return redis.NewIntResult(0, m.incrErr)
	}
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

// ExpireNX sets the expiry only when the key has none, as Redis does.
func (m *mockCounter) ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if m.expireErr != nil {
		return redis.NewBoolResult(false, m.expireErr)
	}
	if _, ok := m.expires[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

// elapse drops every key that carries an expiry, as Redis does when the
// window ends. Keys without one survive.
func (m *mockCounter) elapse() {
	for key := range m.expires {
		delete(m.counts, key)
		delete(m.expires, key)
	}
}

func TestRedisFixedWindow_Allow(t *testing.T) {
	mc := newMockCounter()
	r := newRedisFixedWindow(mc, 2, time.Minute)
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := r.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if ok != want {
			t.Errorf("request %d allowed = %v, want %v", i+1, ok, want)
		}
	}

	if got := mc.expires["lqt:ratelimit:1.2.3.4"]; got != time.Minute {
		t.Errorf("expiry = %v, want 1m set on first hit", got)
	}
	if len(mc.expires) != 1 {
		t.Errorf("Expire called for %d keys, want 1", len(mc.expires))
	}

	mc.elapse()
	if ok, _ := r.Allow(ctx, "1.2.3.4"); !ok {
		t.Error("request after window end denied")
	}
}

func TestRedisFixedWindow_RepairsMissingExpiry(t *testing.T) {
	mc := newMockCounter()
	r := newRedisFixedWindow(mc, 3, time.Minute)
	ctx := context.Background()
	key := "lqt:ratelimit:5.6.7.8"

	mc.expireErr = errors.New("timeout")
	if ok, err := r.Allow(ctx, "5.6.7.8"); err == nil || !ok {
		t.Fatalf("first Allow() = %v, %v; want true with expire error", ok, err)
	}
	mc.expireErr = nil

	var allowed bool
	for i := 0; i < 5; i++ {
		ok, err := r.Allow(ctx, "5.6.7.8")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		allowed = ok
	}
	if allowed {
		t.Error("allowed after burst, want limited")
	}
	if got := mc.expires[key]; got != time.Minute {
		t.Fatalf("expiry = %v, want 1m set by a later hit", got)
	}

	mc.elapse()
	if ok, _ := r.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("client still limited after the window ended")
	}
}

func TestRedisFixedWindow_FailsOpen(t *testing.T) {
	mc := newMockCounter()
	mc.incrErr = errors.New("connection refused")
	r := newRedisFixedWindow(mc, 1, time.Minute)

	ok, err := r.Allow(context.Background(), "k")
	if err == nil {
		t.Error("Allow() error = nil, want the redis error")
	}
	if !ok {
		t.Error("Allow() denied on redis failure, want fail open")
	}

	mc.incrErr = nil
	mc.expireErr = errors.New("timeout")
	ok, err = r.Allow(context.Background(), "other")
	if err == nil || !ok {
		t.Errorf("Allow() = %v, %v; want true with expire error", ok, err)
	}
}

var (
	_ Limiter = (*FixedWindow)(nil)
	_ Limiter = (*RedisFixedWindow)(nil)
	_ counter = (*redis.Client)(nil)
)
