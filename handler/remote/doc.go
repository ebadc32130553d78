// Package remote adapts handler services reachable over HTTP to handler.Handler.
//
// A handler service exposes the five capabilities on fixed routes:
//
//	GET  /api/data
//	GET  /api/schema
//	GET  /api/uischema
//	GET  /api/eventhandler
//	POST /api/event
//
// HTTP 501 means the service does not implement the capability and maps to a
// NotSupported result. HTTP 422 from /api/event means the service could not
// process the payload and maps to a null result. Connection errors and 5xx
// responses are retried with backoff; any other status is a failure.
//
// gateway/http.ServeHandler produces services that speak this protocol.
package remote
