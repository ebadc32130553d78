package builtin

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/jsonmerge"
)

// DefaultsConfig lists fields to fill in before the base handler runs.
type DefaultsConfig struct {
	Defaults map[string]json.RawMessage `json:"defaults"`
}

// Defaults is a before-stage decorator that adds configured fields missing
// from the payload. Fields already present are left alone.
type Defaults struct {
	handler.Unsupported

	defaults jsonmerge.Document
	logger   *slog.Logger
}

func newDefaults(raw json.RawMessage, deps depsView) (handler.Handler, error) {
	cfg := DefaultsConfig{Defaults: map[string]json.RawMessage{"firstNumber": json.RawMessage("1")}}
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Defaults) == 0 {
		return &Defaults{defaults: jsonmerge.Document{}, logger: deps.logger}, nil
	}
	encoded, err := json.Marshal(cfg.Defaults)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Defaults", "new", "encode defaults")
	}
	doc, err := jsonmerge.Parse(encoded)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Defaults", "new", "parse defaults")
	}
	return &Defaults{defaults: doc, logger: deps.logger}, nil
}

// HandleEvent implements handler.Handler.
func (d *Defaults) HandleEvent(_ context.Context, payload json.RawMessage) handler.Result[json.RawMessage] {
	doc, err := jsonmerge.Parse(payload)
	if err != nil {
		return handler.Supported[json.RawMessage](nil)
	}

	filled := 0
	for k, v := range d.defaults {
		if _, present := doc[k]; !present {
			doc[k] = jsonmerge.Clone(v)
			filled++
		}
	}
	if filled > 0 {
		d.logger.Debug("filled default fields", "count", filled)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return handler.Failed[json.RawMessage](errors.Wrap(err, "Defaults", "HandleEvent", "encode payload"))
	}
	return handler.Supported[json.RawMessage](out)
}
