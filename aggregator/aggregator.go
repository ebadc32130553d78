package aggregator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/handler/invoke"
	"github.com/Ironwood-Cyber/decorator-demo/jsonmerge"
	"github.com/Ironwood-Cyber/decorator-demo/registry"
)

// ScriptKey is the key each client event script is stored under.
const ScriptKey = "handler"

// Aggregator merges handler contributions into one form definition.
type Aggregator struct {
	set          *registry.Set
	invoker      *invoke.Invoker
	merger       *jsonmerge.Merger
	checkScripts bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithInvoker sets the invoker used for capability calls.
func WithInvoker(inv *invoke.Invoker) Option {
	return func(a *Aggregator) {
		if inv != nil {
			a.invoker = inv
		}
	}
}

// WithMerger replaces the default Group/Control merger.
func WithMerger(m *jsonmerge.Merger) Option {
	return func(a *Aggregator) {
		if m != nil {
			a.merger = m
		}
	}
}

// WithScriptCheck compiles every client script before accepting it. A script
// that does not compile counts as a failure of its handler.
func WithScriptCheck(enabled bool) Option {
	return func(a *Aggregator) { a.checkScripts = enabled }
}

// New creates an Aggregator over set.
func New(set *registry.Set, opts ...Option) (*Aggregator, error) {
	if set == nil {
		return nil, errors.WrapFatal(errors.ErrRegistryInvariant, "Aggregator", "New", "handler set validation")
	}
	a := &Aggregator{
		set:     set,
		invoker: invoke.New(),
		merger:  jsonmerge.NewMerger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Data merges every handler's initial form data.
func (a *Aggregator) Data(ctx context.Context) jsonmerge.Document {
	return a.collect(ctx, handler.CapabilityData, handler.Handler.Data)
}

// Schema merges every handler's JSON schema.
func (a *Aggregator) Schema(ctx context.Context) jsonmerge.Document {
	return a.collect(ctx, handler.CapabilitySchema, handler.Handler.Schema)
}

// UISchema merges every handler's UI schema and orders layout elements by $id.
func (a *Aggregator) UISchema(ctx context.Context) jsonmerge.Document {
	return jsonmerge.SortByID(a.collect(ctx, handler.CapabilityUISchema, handler.Handler.UISchema))
}

// ClientEventScript returns {"handler": script} for the last handler that
// supplies a script, or an empty document when none does.
func (a *Aggregator) ClientEventScript(ctx context.Context) jsonmerge.Document {
	acc := jsonmerge.Document{}
	for _, d := range a.set.All() {
		res := invoke.Call(ctx, a.invoker, d, handler.CapabilityClientEventScript,
			func(ctx context.Context) handler.Result[string] {
				return handler.Map(d.Instance.ClientEventScript(ctx), a.checkScript(d.Name))
			})
		if !res.IsSupported() {
			continue
		}
		acc = a.merger.MergeObjects(acc, jsonmerge.Document{ScriptKey: res.Value()})
	}
	return acc
}

type fetchFunc func(handler.Handler, context.Context) handler.Result[json.RawMessage]

func (a *Aggregator) collect(ctx context.Context, capability handler.Capability, fetch fetchFunc) jsonmerge.Document {
	acc := jsonmerge.Document{}
	for _, d := range a.set.All() {
		res := invoke.Call(ctx, a.invoker, d, capability,
			func(ctx context.Context) handler.Result[jsonmerge.Document] {
				return handler.Map(fetch(d.Instance, ctx), parseDocument)
			})
		if !res.IsSupported() {
			continue
		}
		acc = a.merger.MergeObjects(acc, res.Value())
	}
	return acc
}

func parseDocument(raw json.RawMessage) (jsonmerge.Document, error) {
	doc, err := jsonmerge.Parse(raw)
	if err != nil {
		return nil, errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrHandlerFailure, err),
			"Aggregator", "parseDocument", "decode handler document")
	}
	return doc, nil
}

// checkScript returns a Map step that compiles the script as a function
// expression when checking is enabled.
func (a *Aggregator) checkScript(name string) func(string) (string, error) {
	return func(script string) (string, error) {
		if !a.checkScripts {
			return script, nil
		}
		if _, err := goja.Compile(name+".js", "("+script+")", false); err != nil {
			return "", errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrHandlerFailure, err),
				"Aggregator", "checkScript", "compile client script")
		}
		return script, nil
	}
}
