package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/lifequality/internal/ratelimit"
	"github.com/hyperengineering/lifequality/internal/types"
)

// mockHandler is a simple handler that records if it was called
func mockHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}), &called
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	handler, called := mockHandler()
	mw := AuthMiddleware(testPassword)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/ratings", nil)
	req.Header.Set("Authorization", "Bearer "+testPassword)
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	if !*called {
		t.Error("handler was not called for valid token")
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		password string
		header   string
	}{
		{"missing header", testPassword, ""},
		{"wrong token", testPassword, "Bearer wrong"},
		{"basic scheme", testPassword, "Basic " + testPassword},
		{"lowercase bearer", testPassword, "bearer " + testPassword},
		{"empty configured password", "", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, called := mockHandler()
			mw := AuthMiddleware(tt.password)(handler)

			req := httptest.NewRequest(http.MethodGet, "/api/ratings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			mw.ServeHTTP(w, req)

			if *called {
				t.Error("handler should not be called")
			}
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if resp := decodeBody[types.ErrorResponse](t, w); resp.Error != "Unauthorized" {
				t.Errorf("error = %q, want Unauthorized", resp.Error)
			}
		})
	}
}

func TestRouter_MissingAuthIs401ForEveryMethod(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/ratings", "/api/sync"} {
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodPut} {
			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("%s %s status = %d, want 401", method, path, w.Code)
			}
		}
	}
}

func TestRouter_OptionsSkipsAuthAndLimiter(t *testing.T) {
	docs := newTestServer(t).docs
	limiter := ratelimit.NewFixedWindow(1, time.Minute)
	router := NewRouter(NewHandler(docs, "kv", "test"), RouterConfig{
		Password:      testPassword,
		AllowedOrigin: "https://lqt.example.com",
		Limiter:       limiter,
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodOptions, "/api/sync", nil)
		req.Header.Set("X-Forwarded-For", "9.9.9.9")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("OPTIONS #%d status = %d, want 200", i+1, w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://lqt.example.com" {
			t.Errorf("Allow-Origin = %q", got)
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
			t.Error("Allow-Headers missing Authorization")
		}
	}

	// The single allowed request of the window is still available.
	if ok, _ := limiter.Allow(context.Background(), "9.9.9.9"); !ok {
		t.Error("OPTIONS requests were charged to the rate limit")
	}
}

func TestRouter_CORSOnErrorResponses(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/ratings", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("401 response missing CORS header")
	}
}

func TestRouter_RateLimit61stRequest(t *testing.T) {
	s := newTestServer(t)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/ratings", nil)
		req.Header.Set("Authorization", "Bearer "+testPassword)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 30; i++ {
		send("1.2.3.4")
	}
	// The limit is shared between both document routes.
	for i := 0; i < 30; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/sync", nil)
		req.Header.Set("Authorization", "Bearer "+testPassword)
		req.Header.Set("X-Forwarded-For", "1.2.3.4")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", 31+i, w.Code)
		}
	}

	w := send("1.2.3.4")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("61st request status = %d, want 429", w.Code)
	}
	if resp := decodeBody[types.ErrorResponse](t, w); resp.Error != "Too many requests" {
		t.Errorf("error = %q, want Too many requests", resp.Error)
	}

	if w := send("5.6.7.8"); w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}

// erroringLimiter always fails.
type erroringLimiter struct{}

func (erroringLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, errors.New("redis down")
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	handler, called := mockHandler()
	mw := RateLimitMiddleware(erroringLimiter{})(handler)

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync", nil))

	if !*called || w.Code != http.StatusOK {
		t.Errorf("called = %v, status = %d; want request allowed", *called, w.Code)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "unknown"},
		{"1.2.3.4", "1.2.3.4"},
		{"1.2.3.4, 10.0.0.1, 10.0.0.2", "1.2.3.4"},
		{"  203.0.113.7 ,10.0.0.1", "203.0.113.7"},
		{" , 10.0.0.1", "unknown"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("X-Forwarded-For", tt.header)
		}
		if got := ClientKey(req); got != tt.want {
			t.Errorf("ClientKey(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestClientKeyFromContext(t *testing.T) {
	if got := ClientKeyFromContext(context.Background()); got != "unknown" {
		t.Errorf("ClientKeyFromContext(empty) = %q, want unknown", got)
	}
	ctx := WithClientKey(context.Background(), "1.2.3.4")
	if got := ClientKeyFromContext(ctx); got != "1.2.3.4" {
		t.Errorf("ClientKeyFromContext() = %q, want 1.2.3.4", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map write")
	})
	mw := RecoveryMiddleware(panicking)

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decodeBody[types.ErrorResponse](t, w)
	if resp.Error != "Internal server error" || resp.Details != "nil map write" {
		t.Errorf("response = %+v", resp)
	}
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	LoggingMiddleware(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want first WriteHeader to win", w.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/ratings", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "lqt_http_requests_total") {
		t.Error("metrics output missing lqt_http_requests_total")
	}
}
