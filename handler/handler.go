package handler

import (
	"context"
	"encoding/json"
)

// Capability names one operation of the Handler interface.
type Capability string

// Capabilities of a handler, also used as log attributes and metric labels.
const (
	CapabilityData              Capability = "data"
	CapabilitySchema            Capability = "schema"
	CapabilityUISchema          Capability = "uischema"
	CapabilityClientEventScript Capability = "eventhandler"
	CapabilityHandleEvent       Capability = "event"
)

// Handler is the capability set a form handler may implement.
//
// The static accessors return raw JSON text (or script source) so that parse
// errors surface at the caller as failures of that handler. HandleEvent returns
// a JSON document, or a Supported result holding null or empty bytes when the
// handler could not process the payload.
type Handler interface {
	Data(ctx context.Context) Result[json.RawMessage]
	Schema(ctx context.Context) Result[json.RawMessage]
	UISchema(ctx context.Context) Result[json.RawMessage]
	ClientEventScript(ctx context.Context) Result[string]
	HandleEvent(ctx context.Context, payload json.RawMessage) Result[json.RawMessage]
}

// Unsupported implements Handler by reporting NotSupported for everything.
// Embed it and override the capabilities a handler provides.
type Unsupported struct{}

// Data implements Handler.
func (Unsupported) Data(context.Context) Result[json.RawMessage] {
	return NotSupported[json.RawMessage]()
}

// Schema implements Handler.
func (Unsupported) Schema(context.Context) Result[json.RawMessage] {
	return NotSupported[json.RawMessage]()
}

// UISchema implements Handler.
func (Unsupported) UISchema(context.Context) Result[json.RawMessage] {
	return NotSupported[json.RawMessage]()
}

// ClientEventScript implements Handler.
func (Unsupported) ClientEventScript(context.Context) Result[string] {
	return NotSupported[string]()
}

// HandleEvent implements Handler.
func (Unsupported) HandleEvent(context.Context, json.RawMessage) Result[json.RawMessage] {
	return NotSupported[json.RawMessage]()
}

var _ Handler = Unsupported{}
