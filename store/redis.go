package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
)

// RedisStore keeps the record in a single Redis string key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to addr and verifies the connection with PING.
func NewRedisStore(ctx context.Context, addr, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WrapTransient(err, "RedisStore", "NewRedisStore", "ping redis")
	}
	return &RedisStore{client: client, key: key}, nil
}

// FindFirst implements Store.
func (s *RedisStore) FindFirst(ctx context.Context) (Record, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, errors.WrapTransient(err, "RedisStore", "FindFirst", "get record")
	}
	rec, err := decodeRecord(raw)
	return rec, err == nil, err
}

// Upsert implements Store. SET replaces the value atomically.
func (s *RedisStore) Upsert(ctx context.Context, data json.RawMessage) error {
	raw, err := encodeRecord(data, time.Now())
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return errors.WrapTransient(err, "RedisStore", "Upsert", "set record")
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
