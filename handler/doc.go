// Package handler defines the capability model shared by every form handler.
//
// A handler contributes up to four static fragments (data, schema, UI schema and a
// client-side event script) and may process submitted events. Each call returns a
// Result that is Supported, NotSupported or Failed, so callers branch on the three
// outcomes without inspecting error text. NotSupported is routine: a decorator with
// no data simply reports it and is skipped.
//
// Implementations embed Unsupported and override only the capabilities they
// provide:
//
//	type schemaOnly struct{ handler.Unsupported }
//
//	func (schemaOnly) Schema(context.Context) handler.Result[json.RawMessage] {
//	    return handler.Supported(json.RawMessage(`{"type":"object"}`))
//	}
//
// A Descriptor pairs an instance with its Role and, for decorators, the Stage of
// the event pipeline it runs in.
package handler
