package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/jsonmerge"
	"github.com/Ironwood-Cyber/decorator-demo/store"
)

// ArithmeticConfig configures a handler that multiplies one numeric field of
// the event payload and writes the product to another.
type ArithmeticConfig struct {
	Input  string  `json:"input"`
	Output string  `json:"output"`
	Factor float64 `json:"factor"`
}

func (c ArithmeticConfig) validate() error {
	if c.Input == "" || c.Output == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "ArithmeticConfig", "validate", "input and output fields")
	}
	if math.IsNaN(c.Factor) || math.IsInf(c.Factor, 0) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ArithmeticConfig", "validate", "factor")
	}
	return nil
}

// Arithmetic computes Output = Input * Factor. The payload is returned with
// Output set; a payload without a numeric Input yields a null result.
type Arithmetic struct {
	handler.Unsupported

	cfg    ArithmeticConfig
	assets bundle
	store  store.Store
	logger *slog.Logger
}

// HandleEvent implements handler.Handler.
func (a *Arithmetic) HandleEvent(_ context.Context, payload json.RawMessage) handler.Result[json.RawMessage] {
	if !gjson.ValidBytes(payload) {
		return handler.Supported[json.RawMessage](nil)
	}
	in, ok := numericField(gjson.GetBytes(payload, gjson.Escape(a.cfg.Input)))
	if !ok {
		a.logger.Debug("payload has no numeric input", "field", a.cfg.Input)
		return handler.Supported[json.RawMessage](nil)
	}

	doc, err := jsonmerge.Parse(payload)
	if err != nil {
		return handler.Supported[json.RawMessage](nil)
	}
	doc[a.cfg.Output] = number(in * a.cfg.Factor)

	out, err := json.Marshal(doc)
	if err != nil {
		return handler.Failed[json.RawMessage](errors.Wrap(err, "Arithmetic", "HandleEvent", "encode result"))
	}
	return handler.Supported[json.RawMessage](out)
}

// Data implements handler.Handler. For a handler that bundles default data,
// the persisted result wins over the bundled document.
func (a *Arithmetic) Data(ctx context.Context) handler.Result[json.RawMessage] {
	defaults := a.assets.document(fileData)
	if a.store == nil || defaults.IsNotSupported() {
		return defaults
	}

	rec, found, err := a.store.FindFirst(ctx)
	switch {
	case err != nil:
		a.logger.Warn("reading stored record failed, serving defaults", "error", err)
	case found:
		return handler.Supported(rec.Data)
	}
	return defaults
}

// Schema implements handler.Handler.
func (a *Arithmetic) Schema(context.Context) handler.Result[json.RawMessage] {
	return a.assets.document(fileSchema)
}

// UISchema implements handler.Handler.
func (a *Arithmetic) UISchema(context.Context) handler.Result[json.RawMessage] {
	return a.assets.document(fileUISchema)
}

// numericField accepts JSON numbers and numeric strings.
func numericField(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(r.Str, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// number keeps integral products as integers so 25 is not rendered as 25.0.
func number(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

func newArithmetic(defaults ArithmeticConfig, assets bundle) func(json.RawMessage, depsView) (handler.Handler, error) {
	return func(raw json.RawMessage, deps depsView) (handler.Handler, error) {
		cfg := defaults
		if err := decodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return &Arithmetic{cfg: cfg, assets: assets, store: deps.store, logger: deps.logger}, nil
	}
}

func decodeConfig(raw json.RawMessage, v any) error {
	if len(raw) == 0 || jsonmerge.IsNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"builtin", "decodeConfig", "decode handler config")
	}
	return nil
}
