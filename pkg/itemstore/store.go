// Package itemstore provides the generic tagged key/value item store the
// link writer persists into. Keys are opaque strings owned by the caller;
// writing an existing key is an upsert, never a duplicate.
package itemstore

import (
	"context"
	"encoding/json"
	"time"
)

// Item is one stored record
type Item struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Key        string          `json:"key"`
	Data       json.RawMessage `json:"data"`
	Tags       []string        `json:"tags,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Store is the flat key/value contract. There is no multi-key atomicity;
// callers that need cross-key consistency must compensate themselves.
type Store interface {
	// Put upserts an item under (collection, key) and indexes it by tags
	Put(ctx context.Context, collection, key string, data any, tags []string) (*Item, error)
	// Get returns the item, or nil when the key is absent
	Get(ctx context.Context, collection, key string) (*Item, error)
	// Delete removes the item and its tag index entries. The bool reports
	// whether the key existed.
	Delete(ctx context.Context, collection, key string) (bool, error)
	// ListByTag returns up to limit items carrying the given tag
	ListByTag(ctx context.Context, collection, tag string, limit int) ([]Item, error)
}
