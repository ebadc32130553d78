// Package health tracks the health of the gateway's handlers and
// infrastructure connections.
//
// The aggregator and pipeline call RecordSuccess and RecordFailure for every
// handler invocation, the NATS client reports connection changes, and the
// HTTP layer serves Monitor.AggregateHealth at /api/health. A failing
// decorator degrades the gateway without making it unhealthy, because the
// pipeline keeps serving the remaining handlers.
//
// Error text is sanitized before it is stored so remote handler URLs and
// credentials never appear in the health response.
package health
