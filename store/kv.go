package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/natsclient"
)

// KVStore keeps the record under one key of a JetStream KV bucket. Writes use
// a revision check so concurrent submissions cannot interleave read and write.
type KVStore struct {
	kv  *natsclient.KVStore
	key string
}

// NewKVStore opens (creating if needed) bucket on client.
func NewKVStore(ctx context.Context, client *natsclient.Client, bucket, key string) (*KVStore, error) {
	b, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "form gateway pipeline results",
		History:     1,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "KVStore", "NewKVStore", "open bucket "+bucket)
	}
	return &KVStore{kv: client.NewKVStore(b), key: key}, nil
}

// FindFirst implements Store.
func (s *KVStore) FindFirst(ctx context.Context) (Record, bool, error) {
	entry, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return Record{}, false, nil
		}
		return Record{}, false, errors.WrapTransient(err, "KVStore", "FindFirst", "read record")
	}
	rec, err := decodeRecord(entry.Value)
	return rec, err == nil, err
}

// Upsert implements Store.
func (s *KVStore) Upsert(ctx context.Context, data json.RawMessage) error {
	raw, err := encodeRecord(data, time.Now())
	if err != nil {
		return err
	}
	err = s.kv.UpdateWithRetry(ctx, s.key, func([]byte) ([]byte, error) {
		return raw, nil
	})
	if err != nil {
		return errors.WrapTransient(err, "KVStore", "Upsert", "write record")
	}
	return nil
}

// Close implements Store. The NATS client is owned by the caller.
func (s *KVStore) Close() error { return nil }
