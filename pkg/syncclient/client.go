// Package syncclient mirrors the local store to the remote sync endpoint.
// Every remote operation is best effort: failures are logged and reported
// as false, and the local store stays the source of truth.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hyperengineering/lifequality/internal/localstore"
)

// Client synchronizes the local sections with the sync server.
type Client struct {
	cfg    Config
	kv     localstore.Store
	client *http.Client

	mu            sync.Mutex
	timer         *time.Timer
	cancelPending context.CancelFunc
	running       chan struct{}
	closed        bool
	initialDone   bool
	inflight      sync.WaitGroup
}

// New creates a Client over kv.
func New(cfg Config, kv localstore.Store) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, kv: kv, client: hc}
}

// enabled reports whether remote sync may run: a server is configured and
// the session is authenticated.
func (c *Client) enabled(ctx context.Context) bool {
	if c.cfg.BaseURL == "" {
		return false
	}
	if !localstore.IsAuthenticated(ctx, c.kv) {
		slog.Debug("sync skipped, not authenticated", "component", "sync")
		return false
	}
	return true
}

// CollectLocalData reads every synchronized section. Values that are not
// valid JSON are carried as JSON strings; absent keys are omitted.
func (c *Client) CollectLocalData(ctx context.Context) Payload {
	p := Payload{}
	for _, s := range Sections {
		raw, err := c.kv.GetItem(ctx, s.Key)
		if errors.Is(err, localstore.ErrNotFound) {
			continue
		}
		if err != nil {
			slog.Error("read local section failed",
				"component", "sync",
				"store_key", s.Key,
				"error", err,
			)
			continue
		}
		if json.Valid([]byte(raw)) {
			p[s.Name] = json.RawMessage(raw)
			continue
		}
		quoted, _ := json.Marshal(raw)
		p[s.Name] = quoted
	}
	return p
}

// ApplyServerData writes each present, non-null section to its local key.
func (c *Client) ApplyServerData(ctx context.Context, p Payload) {
	for _, s := range Sections {
		raw, ok := p[s.Name]
		if !ok || isNull(raw) {
			continue
		}
		if err := c.kv.SetItem(ctx, s.Key, string(raw)); err != nil {
			slog.Error("apply section failed",
				"component", "sync",
				"store_key", s.Key,
				"error", err,
			)
		}
	}
}

// PushToServer sends p to the server. It returns false on any failure.
func (c *Client) PushToServer(ctx context.Context, p Payload) bool {
	if !c.enabled(ctx) {
		return false
	}
	if err := c.push(ctx, p); err != nil {
		if ctx.Err() != nil {
			slog.Debug("push cancelled", "component", "sync")
			return false
		}
		slog.Error("push failed", "component", "sync", "action", "push", "error", err)
		return false
	}
	slog.Info("pushed to server", "component", "sync", "action", "push", "sections", len(p))
	return true
}

// FetchFromServer returns the server document, or nil on any failure.
func (c *Client) FetchFromServer(ctx context.Context) Payload {
	if !c.enabled(ctx) {
		return nil
	}
	p, err := c.fetch(ctx)
	if errors.Is(err, ErrUnauthorized) {
		slog.Warn("fetch rejected, check sync token", "component", "sync", "action", "fetch")
		return nil
	}
	if err != nil {
		slog.Error("fetch failed", "component", "sync", "action", "fetch", "error", err)
		return nil
	}
	return p
}

// FullSync fetches the server document, merges local data over it, applies
// the result locally and pushes it back.
func (c *Client) FullSync(ctx context.Context) bool {
	if !c.enabled(ctx) {
		return false
	}

	local := c.CollectLocalData(ctx)
	merged := local
	if server := c.FetchFromServer(ctx); server != nil {
		merged = Merge(server, local)
	}
	if ctx.Err() != nil {
		return false
	}

	c.ApplyServerData(ctx, merged)
	c.notifyApplied()
	return c.PushToServer(ctx, merged)
}

// InitialLoad runs once per client. When the local ratings are empty the
// server document is adopted; otherwise local data is merged over it and
// pushed back.
func (c *Client) InitialLoad(ctx context.Context) bool {
	c.mu.Lock()
	if c.initialDone || c.closed {
		c.mu.Unlock()
		return false
	}
	if !c.enabled(ctx) {
		c.mu.Unlock()
		return false
	}
	c.initialDone = true
	c.mu.Unlock()

	server := c.FetchFromServer(ctx)

	if !c.hasLocalRatings(ctx) {
		if len(server) == 0 {
			return false
		}
		c.ApplyServerData(ctx, server)
		c.notifyApplied()
		slog.Info("adopted server data", "component", "sync", "action", "initial_load")
		return true
	}

	merged := Merge(server, c.CollectLocalData(ctx))
	c.ApplyServerData(ctx, merged)
	c.notifyApplied()
	return c.PushToServer(ctx, merged)
}

// DebouncedSync schedules a FullSync after delay. Each call replaces the
// pending one and cancels a debounced sync already in flight, so a burst
// of calls produces a single push.
func (c *Client) DebouncedSync(delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.stopPendingLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelPending = cancel
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.closed || ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		done := make(chan struct{})
		c.running = done
		c.inflight.Add(1)
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			if c.running == done {
				c.running = nil
			}
			c.mu.Unlock()
			close(done)
			c.inflight.Done()
		}()

		c.FullSync(ctx)
	})
}

// Flush runs a pending debounced sync now instead of waiting for its
// timer. A debounced sync that already started is waited for, not
// repeated. It returns false unless Flush itself ran a sync that succeeded.
func (c *Client) Flush(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if c.timer == nil {
		running := c.running
		c.mu.Unlock()
		if running != nil {
			select {
			case <-running:
			case <-ctx.Done():
			}
		}
		return false
	}
	c.stopPendingLocked()
	c.mu.Unlock()

	return c.FullSync(ctx)
}

// Close stops the pending timer, cancels in-flight debounced work and waits
// for it to return.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopPendingLocked()
	c.mu.Unlock()

	c.inflight.Wait()
}

func (c *Client) stopPendingLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancelPending != nil {
		c.cancelPending()
		c.cancelPending = nil
	}
}

func (c *Client) notifyApplied() {
	if c.cfg.OnApplied != nil {
		c.cfg.OnApplied()
	}
}

func (c *Client) hasLocalRatings(ctx context.Context) bool {
	raw, err := c.kv.GetItem(ctx, localstore.KeyWeeklyRatings)
	if err != nil {
		return false
	}
	var weeks map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &weeks); err != nil {
		// Unreadable local ratings still count as local data worth keeping.
		return strings.TrimSpace(raw) != ""
	}
	return len(weeks) > 0
}

func (c *Client) push(ctx context.Context, p Payload) error {
	resp, err := c.sendRequest(ctx, http.MethodPost, "/api/sync", pushRequest{Data: p})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context) (Payload, error) {
	resp, err := c.sendRequest(ctx, http.MethodGet, "/api/sync", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	var body fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("fetch: decode response: %w", err)
	}
	if body.Data == nil {
		return Payload{}, nil
	}
	return body.Data, nil
}

// sendRequest sends an authenticated request to the sync server
func (c *Client) sendRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.client.Do(req)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
