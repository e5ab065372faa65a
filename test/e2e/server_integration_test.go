package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/hyperengineering/lifequality/internal/types"
)

// The HTTP surface against a SQLite-backed server.

func TestServer_HealthAndMetrics(t *testing.T) {
	srv := startServer(t, serverOptions{})

	status, body := srv.do(t, http.MethodGet, "/health", "", "")
	if status != http.StatusOK {
		t.Fatalf("health status = %d", status)
	}
	var health types.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" || health.Storage != "sqlite" {
		t.Errorf("health = %+v", health)
	}

	srv.do(t, http.MethodGet, "/api/ratings", "", testPassword)
	status, body = srv.do(t, http.MethodGet, "/metrics", "", "")
	if status != http.StatusOK {
		t.Fatalf("metrics status = %d", status)
	}
	if !strings.Contains(string(body), "lqt_http_requests_total") {
		t.Error("metrics output missing lqt_http_requests_total")
	}
}

func TestServer_RatingsLifecycleAcrossRestart(t *testing.T) {
	srv := startServer(t, serverOptions{})

	status, body := srv.do(t, http.MethodPost, "/api/ratings",
		`{"ratings":{"2024-01-01":{"overallScore":6},"2024-01-08":{"overallScore":7}}}`, testPassword)
	if status != http.StatusOK {
		t.Fatalf("first POST status = %d: %s", status, body)
	}
	status, _ = srv.do(t, http.MethodPost, "/api/ratings",
		`{"ratings":{"2024-01-15":{"overallScore":8}}}`, testPassword)
	if status != http.StatusOK {
		t.Fatalf("second POST status = %d", status)
	}

	status, _ = srv.do(t, http.MethodDelete, "/api/ratings?id=2024-01-08", "", testPassword)
	if status != http.StatusOK {
		t.Fatalf("DELETE status = %d", status)
	}
	status, _ = srv.do(t, http.MethodDelete, "/api/ratings", `{"id":"2024-01-08"}`, testPassword)
	if status != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", status)
	}

	srv.restart(t)

	status, body = srv.do(t, http.MethodGet, "/api/ratings", "", testPassword)
	if status != http.StatusOK {
		t.Fatalf("GET status = %d", status)
	}
	var resp types.RatingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode ratings: %v", err)
	}
	if len(resp.Ratings) != 2 {
		t.Fatalf("ratings = %s, want two weeks", body)
	}
	for _, id := range []string{"2024-01-01", "2024-01-15"} {
		if _, ok := resp.Ratings[id]; !ok {
			t.Errorf("week %s missing after restart", id)
		}
	}
}

func TestServer_SyncDocumentStoredInEnvelope(t *testing.T) {
	srv := startServer(t, serverOptions{})

	status, body := srv.do(t, http.MethodPost, "/api/sync",
		`{"data":{"goals":{"g1":"run a 10k"},"preferences":{"theme":"dark"}}}`, testPassword)
	if status != http.StatusOK {
		t.Fatalf("POST /api/sync status = %d: %s", status, body)
	}

	raw, err := srv.kv.GetItem(context.Background(), "blob:all-data")
	if err != nil {
		t.Fatalf("read stored document: %v", err)
	}
	var env struct {
		Version   int                        `json:"version"`
		UpdatedAt string                     `json:"updatedAt"`
		Payload   map[string]json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != 1 || env.UpdatedAt == "" {
		t.Errorf("envelope = %+v, want version 1 with updatedAt", env)
	}
	if len(env.Payload) != 2 {
		t.Errorf("payload sections = %d, want 2", len(env.Payload))
	}

	// Sections not sent are preserved.
	srv.do(t, http.MethodPost, "/api/sync", `{"data":{"goals":{"g2":"sleep 8h"}}}`, testPassword)
	status, body = srv.do(t, http.MethodGet, "/api/sync", "", testPassword)
	if status != http.StatusOK {
		t.Fatalf("GET /api/sync status = %d", status)
	}
	var resp types.SyncResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode sync: %v", err)
	}
	if string(resp.Data["preferences"]) != `{"theme":"dark"}` {
		t.Errorf("preferences = %s, want preserved", resp.Data["preferences"])
	}
	if string(resp.Data["goals"]) != `{"g2":"sleep 8h"}` {
		t.Errorf("goals = %s, want replaced wholesale", resp.Data["goals"])
	}
}

func TestServer_AuthAndMethods(t *testing.T) {
	srv := startServer(t, serverOptions{})

	for _, path := range []string{"/api/ratings", "/api/sync"} {
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodPut} {
			if status, _ := srv.do(t, method, path, "", ""); status != http.StatusUnauthorized {
				t.Errorf("%s %s without token = %d, want 401", method, path, status)
			}
		}
	}

	if status, _ := srv.do(t, http.MethodPut, "/api/sync", "", testPassword); status != http.StatusMethodNotAllowed {
		t.Errorf("PUT /api/sync = %d, want 405", status)
	}
	if status, _ := srv.do(t, http.MethodPost, "/api/sync", `{"data":[1,2]}`, testPassword); status != http.StatusBadRequest {
		t.Errorf("POST array data = %d, want 400", status)
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL()+"/api/sync", nil)
	req.Header.Set("Origin", "https://example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}
