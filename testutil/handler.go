package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Ironwood-Cyber/decorator-demo/handler"
)

// MockHandler is a handler.Handler whose capabilities are plain function
// fields. A nil field reports NotSupported. Calls are counted per capability.
type MockHandler struct {
	mu sync.Mutex

	DataFunc              func(ctx context.Context) handler.Result[json.RawMessage]
	SchemaFunc            func(ctx context.Context) handler.Result[json.RawMessage]
	UISchemaFunc          func(ctx context.Context) handler.Result[json.RawMessage]
	ClientEventScriptFunc func(ctx context.Context) handler.Result[string]
	HandleEventFunc       func(ctx context.Context, payload json.RawMessage) handler.Result[json.RawMessage]

	calls    map[handler.Capability]int
	payloads []json.RawMessage
}

var _ handler.Handler = (*MockHandler)(nil)

// NewMockHandler creates a handler that supports nothing.
func NewMockHandler() *MockHandler {
	return &MockHandler{calls: make(map[handler.Capability]int)}
}

func (m *MockHandler) record(c handler.Capability) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[handler.Capability]int)
	}
	m.calls[c]++
}

// Calls returns how often capability c was invoked.
func (m *MockHandler) Calls(c handler.Capability) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[c]
}

// Payloads returns the payloads HandleEvent received, in call order.
func (m *MockHandler) Payloads() []json.RawMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]json.RawMessage(nil), m.payloads...)
}

// Data implements handler.Handler.
func (m *MockHandler) Data(ctx context.Context) handler.Result[json.RawMessage] {
	m.record(handler.CapabilityData)
	if m.DataFunc == nil {
		return handler.NotSupported[json.RawMessage]()
	}
	return m.DataFunc(ctx)
}

// Schema implements handler.Handler.
func (m *MockHandler) Schema(ctx context.Context) handler.Result[json.RawMessage] {
	m.record(handler.CapabilitySchema)
	if m.SchemaFunc == nil {
		return handler.NotSupported[json.RawMessage]()
	}
	return m.SchemaFunc(ctx)
}

// UISchema implements handler.Handler.
func (m *MockHandler) UISchema(ctx context.Context) handler.Result[json.RawMessage] {
	m.record(handler.CapabilityUISchema)
	if m.UISchemaFunc == nil {
		return handler.NotSupported[json.RawMessage]()
	}
	return m.UISchemaFunc(ctx)
}

// ClientEventScript implements handler.Handler.
func (m *MockHandler) ClientEventScript(ctx context.Context) handler.Result[string] {
	m.record(handler.CapabilityClientEventScript)
	if m.ClientEventScriptFunc == nil {
		return handler.NotSupported[string]()
	}
	return m.ClientEventScriptFunc(ctx)
}

// HandleEvent implements handler.Handler.
func (m *MockHandler) HandleEvent(ctx context.Context, payload json.RawMessage) handler.Result[json.RawMessage] {
	m.record(handler.CapabilityHandleEvent)
	m.mu.Lock()
	m.payloads = append(m.payloads, append(json.RawMessage(nil), payload...))
	m.mu.Unlock()
	if m.HandleEventFunc == nil {
		return handler.NotSupported[json.RawMessage]()
	}
	return m.HandleEventFunc(ctx, payload)
}

// JSON returns a capability func that always yields doc.
func JSON(doc string) func(context.Context) handler.Result[json.RawMessage] {
	return func(context.Context) handler.Result[json.RawMessage] {
		return handler.Supported(json.RawMessage(doc))
	}
}

// Respond returns an event func that always yields doc, which may be "null".
func Respond(doc string) func(context.Context, json.RawMessage) handler.Result[json.RawMessage] {
	return func(context.Context, json.RawMessage) handler.Result[json.RawMessage] {
		return handler.Supported(json.RawMessage(doc))
	}
}

// Fail returns an event func that always fails with err.
func Fail(err error) func(context.Context, json.RawMessage) handler.Result[json.RawMessage] {
	return func(context.Context, json.RawMessage) handler.Result[json.RawMessage] {
		return handler.Failed[json.RawMessage](err)
	}
}
