package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	raw []byte
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// FindFirst implements Store.
func (s *MemoryStore) FindFirst(_ context.Context) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.raw == nil {
		return Record{}, false, nil
	}
	rec, err := decodeRecord(s.raw)
	return rec, err == nil, err
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, data json.RawMessage) error {
	raw, err := encodeRecord(data, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
