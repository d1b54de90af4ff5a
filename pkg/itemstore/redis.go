package itemstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	OpTimeout time.Duration // per-operation timeout (default: 3s)
}

// RedisStore implements Store on top of Redis. Items live under one key per
// (collection, key) pair; tag membership lives in one set per (collection, tag).
type RedisStore struct {
	rdb       *redis.Client
	logger    ectologger.Logger
	opTimeout time.Duration
}

// NewRedisStore connects to Redis and returns a Store
func NewRedisStore(cfg RedisConfig, logger ectologger.Logger) (*RedisStore, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 3 * time.Second
	}

	logger.Infof("Connected to Redis at %s", addr)

	return &RedisStore{
		rdb:       rdb,
		logger:    logger,
		opTimeout: opTimeout,
	}, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping checks the Redis connection (used by the health checker)
func (s *RedisStore) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

func itemKey(collection, key string) string {
	return "items:" + collection + ":" + key
}

func tagKey(collection, tag string) string {
	return "items:" + collection + ":tag:" + tag
}

// Put upserts an item and indexes its tags
func (s *RedisStore) Put(ctx context.Context, collection, key string, data any, tags []string) (*Item, error) {
	ctx, span := tracing.StartSpan(ctx, "itemstore.RedisStore.Put")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item data: %w", err)
	}

	item := &Item{
		ID:         uuid.New().String(),
		Collection: collection,
		Key:        key,
		Data:       raw,
		Tags:       tags,
		CreatedAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, itemKey(collection, key), payload, 0)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagKey(collection, tag), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
		}).Error("Failed to put item")
		return nil, err
	}

	return item, nil
}

// Get returns the item under (collection, key), or nil when absent
func (s *RedisStore) Get(ctx context.Context, collection, key string) (*Item, error) {
	ctx, span := tracing.StartSpan(ctx, "itemstore.RedisStore.Get")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	payload, err := s.rdb.Get(ctx, itemKey(collection, key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item Item
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &item, nil
}

// Delete removes the item and its tag index entries
func (s *RedisStore) Delete(ctx context.Context, collection, key string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "itemstore.RedisStore.Delete")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	// Load first so tag memberships can be cleaned up
	item, err := s.Get(ctx, collection, key)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, itemKey(collection, key))
	for _, tag := range item.Tags {
		pipe.SRem(ctx, tagKey(collection, tag), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
		}).Error("Failed to delete item")
		return false, err
	}

	return true, nil
}

// ListByTag returns up to limit items carrying the given tag
func (s *RedisStore) ListByTag(ctx context.Context, collection, tag string, limit int) ([]Item, error) {
	ctx, span := tracing.StartSpan(ctx, "itemstore.RedisStore.ListByTag")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	keys, err := s.rdb.SMembers(ctx, tagKey(collection, tag)).Result()
	if err != nil {
		return nil, err
	}
	keys = pageKeys(keys, limit)

	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		item, err := s.Get(ctx, collection, key)
		if err != nil {
			return nil, err
		}
		if item == nil {
			// Tag set can lag behind a delete; skip stale members
			continue
		}
		items = append(items, *item)
	}

	return items, nil
}

// pageKeys orders tag members before the limit cut. SMembers returns them in
// unspecified order, so without the sort two identical calls could truncate
// to different subsets.
func pageKeys(keys []string, limit int) []string {
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
