package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/types"
)

// Failure and recovery behavior of the sync path.

// TestResilience_ServerDownKeepsLocalData verifies that a sync against an
// unreachable server fails without touching local data, and succeeds once
// the server is back.
func TestResilience_ServerDownKeepsLocalData(t *testing.T) {
	srv := startServer(t, serverOptions{})
	d := newDevice(t, "offline", srv.URL(), testPassword)

	d.rate(day(2024, time.June, 4), "health", 6)
	srv.stop()

	if d.client.FullSync(context.Background()) {
		t.Fatal("FullSync() = true with server down")
	}
	assertWeeks(t, "offline", d.weekIDs(), "2024-06-03")

	srv.start(t)
	d.sync(t)
	if _, ok := srv.serverWeeks(t)["2024-06-03"]; !ok {
		t.Error("server missing week after recovery")
	}
}

// TestResilience_ServerRestartPersists verifies the server keeps documents
// in its database across a restart.
func TestResilience_ServerRestartPersists(t *testing.T) {
	srv := startServer(t, serverOptions{})

	a := newDevice(t, "alpha", srv.URL(), testPassword)
	a.rate(day(2024, time.July, 1), "family", 9)
	a.sync(t)

	srv.restart(t)

	fresh := newDevice(t, "fresh", srv.URL(), testPassword)
	if !fresh.client.InitialLoad(context.Background()) {
		t.Fatal("InitialLoad() after restart = false")
	}
	assertWeeks(t, "fresh", fresh.weekIDs(), "2024-07-01")
}

// TestResilience_WrongToken verifies a rejected token neither changes the
// server nor the device.
func TestResilience_WrongToken(t *testing.T) {
	srv := startServer(t, serverOptions{})
	d := newDevice(t, "intruder", srv.URL(), "not-the-password")

	d.rate(day(2024, time.August, 6), "finances", 4)

	if d.client.FullSync(context.Background()) {
		t.Fatal("FullSync() = true with wrong token")
	}
	if got := len(srv.serverWeeks(t)); got != 0 {
		t.Errorf("server weeks = %d, want 0", got)
	}
	assertWeeks(t, "intruder", d.weekIDs(), "2024-08-05")
}

// TestResilience_RateLimitedThenRecovers verifies a client over the limit
// fails its sync and succeeds after the window resets.
func TestResilience_RateLimitedThenRecovers(t *testing.T) {
	srv := startServer(t, serverOptions{limit: 2, window: 300 * time.Millisecond})
	d := newDevice(t, "eager", srv.URL(), testPassword)

	d.rate(day(2024, time.September, 3), "energy", 5)

	// One sync is a fetch plus a push: exactly the limit.
	d.sync(t)
	if d.client.FullSync(context.Background()) {
		t.Fatal("second FullSync() inside the window = true, want 429")
	}

	time.Sleep(400 * time.Millisecond)
	d.sync(t)
}

// TestResilience_CorruptServerDocument verifies an unreadable stored
// document surfaces as a 500 and leaves the device untouched.
func TestResilience_CorruptServerDocument(t *testing.T) {
	srv := startServer(t, serverOptions{})
	ctx := context.Background()

	if err := srv.kv.SetItem(ctx, "blob:all-data", "{{ not json"); err != nil {
		t.Fatalf("seed corrupt document: %v", err)
	}

	status, body := srv.do(t, http.MethodGet, "/api/sync", "", testPassword)
	if status != http.StatusInternalServerError {
		t.Fatalf("GET /api/sync status = %d, want 500", status)
	}
	var errResp types.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		t.Errorf("error body = %s, want {error}", body)
	}

	d := newDevice(t, "victim", srv.URL(), testPassword)
	d.rate(day(2024, time.October, 1), "health", 7)
	if d.client.FullSync(ctx) {
		t.Fatal("FullSync() = true against corrupt document")
	}
	raw, err := d.kv.GetItem(ctx, localstore.KeyWeeklyRatings)
	if err != nil {
		t.Fatalf("local ratings lost: %v", err)
	}
	var weeks map[string]types.WeeklyRating
	if err := json.Unmarshal([]byte(raw), &weeks); err != nil || weeks["2024-09-30"].Ratings["health"] != 7 {
		t.Errorf("local ratings = %s, want week 2024-09-30 intact", raw)
	}
}

// TestResilience_LegacyBareDocument verifies a document stored before the
// versioned envelope existed is still served and adopted.
func TestResilience_LegacyBareDocument(t *testing.T) {
	srv := startServer(t, serverOptions{})
	ctx := context.Background()

	legacy := `{"ratings":{"2023-12-25":{"id":"2023-12-25","weekNumber":52,` +
		`"startDate":"2023-12-25T00:00:00Z","endDate":"2023-12-31T23:59:59.999Z",` +
		`"ratings":{"family":10},"notes":{},"mood":"excellent","keyEvents":["holidays"],` +
		`"overallScore":10,"createdAt":"2023-12-25T10:00:00Z","updatedAt":"2023-12-25T10:00:00Z"}}}`
	if err := srv.kv.SetItem(ctx, "blob:all-data", legacy); err != nil {
		t.Fatalf("seed legacy document: %v", err)
	}

	d := newDevice(t, "upgrader", srv.URL(), testPassword)
	if !d.client.InitialLoad(ctx) {
		t.Fatal("InitialLoad() = false for legacy document")
	}
	week, ok := d.ratings.Get("2023-12-25")
	if !ok {
		t.Fatal("legacy week not adopted")
	}
	if week.Ratings["family"] != 10 || len(week.KeyEvents) != 1 {
		t.Errorf("week = %+v, want family=10 with one event", week)
	}
}
