// Package decoratordemo composes a form and its event processing from an
// ordered set of handlers: one base handler and any number of decorators.
//
// # Model
//
// Every handler offers up to five capabilities: initial data, JSON schema,
// UI schema, a client-side event script and server-side event handling. A
// handler answers each one with Supported, NotSupported or Failed. Decorators
// carry a stage that decides where they take part in event handling:
//
//   - override: replaces the base handler for the event
//   - before: transforms the payload the base handler receives
//   - after: transforms the base handler's output
//   - none: contributes documents only
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          gateway/http               │  /api/data, /api/schema,
//	│   (routes, CORS, limits, health)    │  /api/uischema, /api/event
//	└─────────────────────────────────────┘
//	       ↓ documents         ↓ events
//	┌──────────────────┐ ┌─────────────────┐
//	│   aggregator     │ │    pipeline     │  override → before →
//	│ (merge in order) │ │ (staged events) │  base → after → done
//	└──────────────────┘ └─────────────────┘
//	           ↓ invoke each handler
//	┌─────────────────────────────────────┐
//	│            registry                 │  Exactly one base,
//	│  (builtin, remote, static sources)  │  immutable order
//	└─────────────────────────────────────┘
//
// A completed event is persisted to the single-record store (NATS KV, Redis or
// memory) and published as a notification on NATS and to websocket clients at
// /api/notifications.
//
// # Binaries
//
//   - cmd/formgateway runs the gateway from layered JSON or YAML configuration.
//   - cmd/formhandler serves one builtin handler over HTTP so a gateway can use
//     it through the remote factory.
package decoratordemo
