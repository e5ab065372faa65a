// Package blob stores the remote sync documents. Documents are written as a
// versioned envelope; objects written before the envelope existed are read
// as bare payloads.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperengineering/lifequality/internal/config"
	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/types"
)

// Document names used by the API.
const (
	NameRatings = "ratings"
	NameAllData = "all-data"
)

// EnvelopeVersion is the version written by Put.
const EnvelopeVersion = 1

// Store reads and replaces whole JSON documents by name.
type Store interface {
	// Get returns the named document, or an empty document when absent.
	Get(ctx context.Context, name string) (types.Document, error)

	// Put replaces the named document in a single write.
	Put(ctx context.Context, name string, doc types.Document) error
}

type envelope struct {
	Version   int            `json:"version"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Payload   types.Document `json:"payload"`
}

// Encode wraps doc in a current-version envelope.
func Encode(doc types.Document, now time.Time) ([]byte, error) {
	if doc == nil {
		doc = types.Document{}
	}
	return json.Marshal(envelope{Version: EnvelopeVersion, UpdatedAt: now.UTC(), Payload: doc})
}

// Decode unwraps a stored object. An object carrying both "version" and
// "payload" is an envelope; anything else is a legacy bare document.
func Decode(raw []byte) (types.Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return types.Document{}, nil
	}

	var top types.Document
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if top == nil {
		return types.Document{}, nil
	}

	_, hasVersion := top["version"]
	payload, hasPayload := top["payload"]
	if !hasVersion || !hasPayload {
		return top, nil
	}

	var version int
	if err := json.Unmarshal(top["version"], &version); err != nil {
		return top, nil
	}
	if version > EnvelopeVersion {
		return nil, fmt.Errorf("decode document: unsupported envelope version %d", version)
	}

	var doc types.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode document payload: %w", err)
	}
	if doc == nil {
		doc = types.Document{}
	}
	return doc, nil
}

// NewStore returns an S3Store when a bucket is configured, otherwise a
// KVStore over kv.
func NewStore(cfg config.BlobConfig, kv localstore.Store) (Store, error) {
	if cfg.Bucket == "" {
		return NewKVStore(kv), nil
	}
	return NewS3Store(cfg)
}
