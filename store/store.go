package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
)

// Record is the single persisted pipeline result.
type Record struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store holds at most one Record. Upsert replaces it whole.
type Store interface {
	// FindFirst returns the record and true, or false when nothing has been stored.
	FindFirst(ctx context.Context) (Record, bool, error)
	Upsert(ctx context.Context, data json.RawMessage) error
	Close() error
}

func encodeRecord(data json.RawMessage, now time.Time) ([]byte, error) {
	if !json.Valid(data) {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Store", "Upsert", "validate document")
	}
	return json.Marshal(Record{Data: data, UpdatedAt: now.UTC()})
}

func decodeRecord(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrDataCorrupted, err),
			"Store", "FindFirst", "decode stored record")
	}
	return rec, nil
}
