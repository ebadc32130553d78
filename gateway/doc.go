// Package gateway holds the configuration and interfaces shared by the form
// gateway's HTTP surface.
//
// # Routes
//
// The gateway serves the composed form and accepts submissions:
//
//	GET  /api/data           merged initial data
//	GET  /api/schema         merged JSON schema
//	GET  /api/uischema       merged UI schema, layout ordered by $id
//	GET  /api/eventhandler   {"handler": script}, 400 when no handler has one
//	POST /api/event          final pipeline document, 400 when rejected
//	GET  /api/health         aggregated handler and infrastructure health
//	GET  /api/notifications  websocket stream of completed results
//
// # Handler services
//
// A handler service exposes a single handler on the first five routes so that
// another gateway can reach it through the remote adapter. NotSupported maps
// to 501 and a null event result to 422.
//
// # Error mapping
//
// Invalid errors (bad payload, base rejection, oversized body) map to 400.
// Handler failures never reach the client; they are contained by the
// aggregator and pipeline.
package gateway
