package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperengineering/lifequality/internal/api"
	"github.com/hyperengineering/lifequality/internal/blob"
	"github.com/hyperengineering/lifequality/internal/hypothesis"
	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/ratelimit"
	"github.com/hyperengineering/lifequality/internal/ratings"
	"github.com/hyperengineering/lifequality/internal/types"
	"github.com/hyperengineering/lifequality/pkg/syncclient"
)

const testPassword = "e2e-test-password"

// --- In-process server ---

type serverOptions struct {
	limit  int
	window time.Duration
}

// testServer runs the real router over a SQLite-backed blob store. It can be
// stopped and restarted on the same address and database file.
type testServer struct {
	opts   serverOptions
	dbPath string
	addr   string
	kv     *localstore.SQLiteStore
	srv    *httptest.Server
}

func startServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	if opts.limit == 0 {
		opts.limit = 1000
	}
	if opts.window == 0 {
		opts.window = time.Minute
	}

	s := &testServer{
		opts:   opts,
		dbPath: filepath.Join(t.TempDir(), "server.db"),
	}
	s.start(t)
	t.Cleanup(s.stop)
	return s
}

func (s *testServer) start(t *testing.T) {
	t.Helper()

	kv, err := localstore.NewSQLiteStore(s.dbPath)
	if err != nil {
		t.Fatalf("open server store: %v", err)
	}

	addr := s.addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		kv.Close()
		t.Fatalf("listen on %s: %v", addr, err)
	}

	h := api.NewHandler(blob.NewKVStore(kv), "sqlite", "e2e")
	srv := httptest.NewUnstartedServer(api.NewRouter(h, api.RouterConfig{
		Password:      testPassword,
		AllowedOrigin: "*",
		Limiter:       ratelimit.NewFixedWindow(s.opts.limit, s.opts.window),
	}))
	srv.Listener.Close()
	srv.Listener = l
	srv.Start()

	s.kv = kv
	s.srv = srv
	s.addr = l.Addr().String()
}

func (s *testServer) stop() {
	if s.srv != nil {
		s.srv.Close()
		s.srv = nil
	}
	if s.kv != nil {
		s.kv.Close()
		s.kv = nil
	}
}

func (s *testServer) restart(t *testing.T) {
	t.Helper()
	s.stop()
	s.start(t)
}

func (s *testServer) URL() string {
	return "http://" + s.addr
}

// do sends an API request with the given bearer token ("" for none).
func (s *testServer) do(t *testing.T, method, path, body, token string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, s.URL()+path, r)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

// serverWeeks returns the ratings section of the server's sync document.
func (s *testServer) serverWeeks(t *testing.T) map[string]types.WeeklyRating {
	t.Helper()
	status, body := s.do(t, http.MethodGet, "/api/sync", "", testPassword)
	if status != http.StatusOK {
		t.Fatalf("GET /api/sync: status %d: %s", status, body)
	}
	var resp struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode sync response: %v", err)
	}
	weeks := map[string]types.WeeklyRating{}
	if raw, ok := resp.Data[syncclient.SectionRatings]; ok {
		if err := json.Unmarshal(raw, &weeks); err != nil {
			t.Fatalf("decode server ratings: %v", err)
		}
	}
	return weeks
}

// --- Devices ---

// device is one client installation: its own local database, rating store
// and sync client.
type device struct {
	name       string
	kv         *localstore.SQLiteStore
	ratings    *ratings.Store
	hypotheses *hypothesis.Store
	client     *syncclient.Client
}

func newDevice(t *testing.T, name, baseURL, token string) *device {
	t.Helper()
	ctx := context.Background()

	kv, err := localstore.NewSQLiteStore(filepath.Join(t.TempDir(), name+".db"))
	if err != nil {
		t.Fatalf("open %s store: %v", name, err)
	}
	if err := kv.SetItem(ctx, localstore.KeyAuthenticated, "true"); err != nil {
		t.Fatalf("authenticate %s: %v", name, err)
	}

	d := &device{
		name:       name,
		kv:         kv,
		ratings:    ratings.New(ctx, kv, ratings.WithLocation(time.UTC)),
		hypotheses: hypothesis.NewStore(kv),
	}
	d.client = syncclient.New(syncclient.Config{
		BaseURL: baseURL,
		Token:   token,
		Timeout: 2 * time.Second,
		OnApplied: func() {
			d.ratings.Reload(context.Background())
		},
	}, kv)

	t.Cleanup(func() {
		d.client.Close()
		kv.Close()
	})
	return d
}

func (d *device) rate(date time.Time, metric string, value float64) types.WeeklyRating {
	return d.ratings.SetMetricRating(context.Background(), date, metric, value, nil)
}

func (d *device) sync(t *testing.T) {
	t.Helper()
	if !d.client.FullSync(context.Background()) {
		t.Fatalf("%s: FullSync failed", d.name)
	}
}

func (d *device) weekIDs() []string {
	var ids []string
	for _, w := range d.ratings.List() {
		ids = append(ids, w.ID)
	}
	return ids
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func assertWeeks(t *testing.T, who string, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s weeks = %v, want %v", who, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s weeks = %v, want %v", who, got, want)
			return
		}
	}
}
