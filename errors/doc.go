// Package errors provides standardized error handling for the form gateway.
//
// # Classification
//
// Every error that crosses a package boundary is wrapped with one of three classes:
//
//   - Transient: a handler call timed out, a remote service was unreachable, NATS was down.
//   - Invalid: the caller sent something unusable (empty payload, rejected event, bad config value).
//   - Fatal: the process cannot serve traffic (no base handler, two base handlers).
//
// The gateway maps Invalid to HTTP 400, Transient to 503/504 and Fatal to 500.
//
// # Domain sentinels
//
// ErrNotSupported is not a failure. Handlers return it for capabilities they do not
// implement and callers skip it silently. ErrHandlerFailure, ErrInvalidPayload,
// ErrBaseRejected and ErrRegistryInvariant cover the remaining outcomes of an
// aggregation or pipeline run.
//
// Wrap third-party errors with component context:
//
//	if err := kv.Put(ctx, key, data); err != nil {
//	    return errors.WrapTransient(err, "KVStore", "Upsert", "put record")
//	}
//
// Check classification with the standard library:
//
//	if errors.Is(err, errors.ErrBaseRejected) { ... }
package errors
