package builtin

import (
	"context"
	"encoding/json"

	"github.com/Ironwood-Cyber/decorator-demo/handler"
)

// Extension serves bundled documents only; it takes no part in event handling.
type Extension struct {
	handler.Unsupported
	assets bundle
}

// Data implements handler.Handler.
func (e *Extension) Data(context.Context) handler.Result[json.RawMessage] {
	return e.assets.document(fileData)
}

// Schema implements handler.Handler.
func (e *Extension) Schema(context.Context) handler.Result[json.RawMessage] {
	return e.assets.document(fileSchema)
}

// UISchema implements handler.Handler.
func (e *Extension) UISchema(context.Context) handler.Result[json.RawMessage] {
	return e.assets.document(fileUISchema)
}

// ClientEventScript implements handler.Handler.
func (e *Extension) ClientEventScript(context.Context) handler.Result[string] {
	return e.assets.script()
}

func newExtension(assets bundle) func(json.RawMessage, depsView) (handler.Handler, error) {
	return func(json.RawMessage, depsView) (handler.Handler, error) {
		return &Extension{assets: assets}, nil
	}
}
