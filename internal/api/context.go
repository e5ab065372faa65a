package api

import (
	"context"
	"net/http"
	"strings"
)

// clientKeyContextKey is the context key for the rate-limit client key.
type clientKeyContextKey struct{}

// ClientKey identifies the caller for rate limiting: the first entry of
// X-Forwarded-For, or "unknown" when the header is absent.
func ClientKey(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return "unknown"
	}
	first, _, _ := strings.Cut(xff, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return "unknown"
	}
	return first
}

// WithClientKey returns a new context with the client key attached.
func WithClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, clientKeyContextKey{}, key)
}

// ClientKeyFromContext extracts the client key from the context.
// Returns "unknown" if not present or empty.
func ClientKeyFromContext(ctx context.Context) string {
	key, ok := ctx.Value(clientKeyContextKey{}).(string)
	if !ok || key == "" {
		return "unknown"
	}
	return key
}
