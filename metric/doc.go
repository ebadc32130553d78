// Package metric exposes Prometheus metrics for the form gateway.
//
// NewMetricsRegistry creates a private Prometheus registry holding the core
// gateway metrics (handler calls, pipeline runs, notifications, store writes,
// HTTP requests, NATS status) plus the Go runtime and process collectors.
// Components that own extra metrics, such as the worker pool, register them
// through MetricsRegistrar using a service-qualified name.
//
// The Record methods on *Metrics tolerate a nil receiver, so code paths that
// run without metrics need no guards:
//
//	var m *metric.Metrics // metrics disabled
//	m.RecordPipelineRun("completed", time.Since(start)) // no-op
package metric
