// Package store persists the latest pipeline result.
//
// At most one record exists: Upsert replaces it and FindFirst returns it, or
// reports that nothing has been stored yet. Three backends are available and
// selected by config.StoreConfig.Backend:
//
//   - memory: process-local, the default for development and tests
//   - nats: a JetStream KV bucket, written with a revision check
//   - redis: a single string key, written with SET
//
// All backends wrap the document in a Record carrying the write time.
package store
