package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperengineering/lifequality/internal/localstore"
	"github.com/hyperengineering/lifequality/internal/types"
)

const kvKeyPrefix = "blob:"

// KVStore keeps documents in a localstore table. Each Put is one upsert.
type KVStore struct {
	kv  localstore.Store
	now func() time.Time
}

// NewKVStore creates a KVStore over kv.
func NewKVStore(kv localstore.Store) *KVStore {
	return &KVStore{kv: kv, now: time.Now}
}

func (s *KVStore) Get(ctx context.Context, name string) (types.Document, error) {
	raw, err := s.kv.GetItem(ctx, kvKeyPrefix+name)
	if errors.Is(err, localstore.ErrNotFound) {
		observe("get", "kv", "absent")
		return types.Document{}, nil
	}
	if err != nil {
		observe("get", "kv", "error")
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	doc, err := Decode([]byte(raw))
	if err != nil {
		observe("get", "kv", "error")
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	observe("get", "kv", "ok")
	return doc, nil
}

func (s *KVStore) Put(ctx context.Context, name string, doc types.Document) error {
	raw, err := Encode(doc, s.now())
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}
	if err := s.kv.SetItem(ctx, kvKeyPrefix+name, string(raw)); err != nil {
		observe("put", "kv", "error")
		return fmt.Errorf("write document %s: %w", name, err)
	}
	observe("put", "kv", "ok")
	return nil
}
