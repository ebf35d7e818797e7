package checkpoint

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore persists checkpoints to Redis, one JSON value per checkpoint
// plus a per-thread ZSET index scored by sequence. Suitable when multiple
// processes need access to the same threads, or when checkpoint history
// should age out via TTL eviction. Eviction is invisible to the engine,
// which only ever asks for latest-or-specific.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the expiration for checkpoints and thread indexes.
// Zero means no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for checkpoints.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis checkpoint store.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient creates a Redis checkpoint store from an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: "stategraph:checkpoint:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(threadID, checkpointID string) string {
	return s.prefix + threadID + ":" + checkpointID
}

func (s *RedisStore) indexKey(threadID string) string {
	return s.prefix + threadID + ":index"
}

// Put implements Store. The value is overwritten on a repeated key while
// ZADD NX leaves the original ordering entry untouched.
func (s *RedisStore) Put(ctx context.Context, cp *Checkpoint) error {
	data, err := cp.Marshal()
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(cp.ThreadID, cp.ID), data, s.ttl)
	pipe.ZAddNX(ctx, s.indexKey(cp.ThreadID), backend.Z{
		Score:  float64(cp.Sequence),
		Member: cp.ID,
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.indexKey(cp.ThreadID), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put checkpoint: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error) {
	if checkpointID == "" {
		ids, err := s.client.ZRevRange(ctx, s.indexKey(threadID), 0, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("read thread index: %w", err)
		}
		if len(ids) == 0 {
			return nil, ErrNotFound
		}
		checkpointID = ids[0]
	}

	val, err := s.client.Get(ctx, s.key(threadID, checkpointID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}

	return Unmarshal([]byte(val))
}

// List implements Store. Entries whose values already expired are pruned
// from the index lazily.
func (s *RedisStore) List(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read thread index: %w", err)
	}
	if len(ids) == 0 {
		return []*Checkpoint{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(threadID, id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load checkpoints: %w", err)
	}

	cps := make([]*Checkpoint, 0, len(vals))
	for i, val := range vals {
		raw, ok := val.(string)
		if !ok {
			// Value evicted; drop the stale index entry.
			s.client.ZRem(ctx, s.indexKey(threadID), ids[i])
			continue
		}
		cp, err := Unmarshal([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("unmarshal checkpoint %s: %w", ids[i], err)
		}
		cps = append(cps, cp)
	}

	return cps, nil
}

// DeleteThread implements Store.
func (s *RedisStore) DeleteThread(ctx context.Context, threadID string) error {
	ids, err := s.client.ZRange(ctx, s.indexKey(threadID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("read thread index: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.key(threadID, id))
	}
	keys = append(keys, s.indexKey(threadID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete thread checkpoints: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
