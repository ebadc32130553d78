package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Ironwood-Cyber/decorator-demo/notify"
	"github.com/Ironwood-Cyber/decorator-demo/store"
)

// RecordingSink is a notify.Sink that keeps every message.
type RecordingSink struct {
	mu       sync.Mutex
	messages []notify.Message
	// Err, when set, is returned from Publish after recording.
	Err error
}

// Publish implements notify.Sink.
func (s *RecordingSink) Publish(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.Err
}

// Messages returns the recorded messages.
func (s *RecordingSink) Messages() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Message(nil), s.messages...)
}

// FailingStore is a store.Store whose operations return Err.
type FailingStore struct {
	Err error
}

var _ store.Store = FailingStore{}

// FindFirst implements store.Store.
func (f FailingStore) FindFirst(context.Context) (store.Record, bool, error) {
	return store.Record{}, false, f.Err
}

// Upsert implements store.Store.
func (f FailingStore) Upsert(context.Context, json.RawMessage) error { return f.Err }

// Close implements store.Store.
func (f FailingStore) Close() error { return nil }
