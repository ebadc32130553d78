package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/handler/invoke"
	"github.com/Ironwood-Cyber/decorator-demo/jsonmerge"
	"github.com/Ironwood-Cyber/decorator-demo/metric"
	"github.com/Ironwood-Cyber/decorator-demo/notify"
	"github.com/Ironwood-Cyber/decorator-demo/registry"
	"github.com/Ironwood-Cyber/decorator-demo/store"
)

// Outcome labels for pipeline metrics.
const (
	OutcomeCompleted      = "completed"
	OutcomeOverridden     = "overridden"
	OutcomeInvalidPayload = "invalid_payload"
	OutcomeRejected       = "rejected"
)

// SchemaSource supplies the schema payloads are validated against.
type SchemaSource interface {
	Schema(ctx context.Context) jsonmerge.Document
}

// Pipeline executes form events. It is safe for concurrent use.
type Pipeline struct {
	set            *registry.Set
	invoker        *invoke.Invoker
	merger         *jsonmerge.Merger
	sink           notify.Sink
	store          store.Store
	schema         SchemaSource
	logger         *slog.Logger
	metrics        *metric.Metrics
	maxConcurrency int
	now            func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInvoker sets the invoker used for handler calls.
func WithInvoker(inv *invoke.Invoker) Option {
	return func(p *Pipeline) {
		if inv != nil {
			p.invoker = inv
		}
	}
}

// WithMerger replaces the default merger for stage responses.
func WithMerger(m *jsonmerge.Merger) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.merger = m
		}
	}
}

// WithSink sets where final documents are published. Publishing must not block;
// wrap slow sinks in notify.AsyncSink.
func WithSink(s notify.Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithStore sets where final documents are persisted.
func WithStore(s store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithSchemaValidation validates every payload against the schema from src.
func WithSchemaValidation(src SchemaSource) Option {
	return func(p *Pipeline) { p.schema = src }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records run outcomes in m.
func WithMetrics(m *metric.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithMaxConcurrency bounds concurrent decorator calls within a stage. Zero or
// less means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(p *Pipeline) { p.maxConcurrency = n }
}

// WithClock sets the time source for notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Pipeline over set.
func New(set *registry.Set, opts ...Option) (*Pipeline, error) {
	if set == nil {
		return nil, errors.WrapFatal(errors.ErrRegistryInvariant, "Pipeline", "New", "handler set validation")
	}
	p := &Pipeline{
		set:     set,
		invoker: invoke.New(),
		merger:  jsonmerge.NewMerger(),
		sink:    notify.Discard,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil {
		p.sink = notify.Discard
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Execute runs payload through the stages and returns the final document.
// Errors are classified Invalid: they wrap errors.ErrInvalidPayload or
// errors.ErrBaseRejected and leave no side effects behind.
func (p *Pipeline) Execute(ctx context.Context, payload []byte) (jsonmerge.Document, error) {
	start := time.Now()

	doc, err := p.validate(ctx, payload)
	if err != nil {
		p.logger.Info("event payload rejected", "error", err)
		p.metrics.RecordPipelineRun(OutcomeInvalidPayload, time.Since(start))
		return nil, err
	}

	if out, ok := p.stage(ctx, handler.StageOverrideBase, doc); ok {
		p.done(ctx, out)
		p.metrics.RecordPipelineRun(OutcomeOverridden, time.Since(start))
		return out, nil
	}

	input := doc
	if out, ok := p.stage(ctx, handler.StageBeforeBase, doc); ok {
		input = out
	}

	baseOut, err := p.base(ctx, input)
	if err != nil {
		p.logger.Info("base handler rejected event", "handler", p.set.Base().Name, "error", err)
		p.metrics.RecordPipelineRun(OutcomeRejected, time.Since(start))
		return nil, err
	}

	final := baseOut
	if out, ok := p.stage(ctx, handler.StageAfterBase, baseOut); ok {
		final = out
	}

	p.done(ctx, final)
	p.metrics.RecordPipelineRun(OutcomeCompleted, time.Since(start))
	return final, nil
}

func (p *Pipeline) validate(ctx context.Context, payload []byte) (jsonmerge.Document, error) {
	doc, err := jsonmerge.Parse(payload)
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err),
			"Pipeline", "validate", "parse payload")
	}
	if len(doc) == 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: empty payload", errors.ErrInvalidPayload),
			"Pipeline", "validate", "parse payload")
	}
	if p.schema == nil {
		return doc, nil
	}

	schema := p.schema.Schema(ctx)
	if len(schema) == 0 {
		return doc, nil
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		// The aggregated schema itself is unusable; accept the payload.
		p.logger.Warn("schema validation skipped", "error", err)
		return doc, nil
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidPayload, strings.Join(problems, "; ")),
			"Pipeline", "validate", "schema validation")
	}
	return doc, nil
}

// stage calls every decorator of stage with input and merges the non-null
// responses in registry order. It reports false when nobody responded.
func (p *Pipeline) stage(ctx context.Context, stage handler.Stage, input jsonmerge.Document) (jsonmerge.Document, bool) {
	decorators := p.set.InStage(stage)
	if len(decorators) == 0 {
		return nil, false
	}

	body, err := json.Marshal(input)
	if err != nil {
		p.logger.Error("encoding stage input failed", "stage", stage, "error", err)
		return nil, false
	}

	responses := make([]jsonmerge.Document, len(decorators))
	var g errgroup.Group
	if p.maxConcurrency > 0 {
		g.SetLimit(p.maxConcurrency)
	}
	for i, d := range decorators {
		g.Go(func() error {
			res := p.handleEvent(ctx, d, body)
			if !res.IsSupported() {
				return nil
			}
			if res.Value() == nil {
				p.logger.Warn("decorator returned no result", "handler", d.Name, "stage", stage)
				return nil
			}
			responses[i] = res.Value()
			return nil
		})
	}
	_ = g.Wait()

	var merged jsonmerge.Document
	for _, doc := range responses {
		if doc == nil {
			continue
		}
		if merged == nil {
			merged = doc
			continue
		}
		merged = p.merger.MergeObjects(merged, doc)
	}
	return merged, merged != nil
}

func (p *Pipeline) base(ctx context.Context, input jsonmerge.Document) (jsonmerge.Document, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrBaseRejected, err),
			"Pipeline", "base", "encode base input")
	}

	res := p.handleEvent(ctx, p.set.Base(), body)
	switch {
	case res.IsFailed():
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrBaseRejected, res.Err()),
			"Pipeline", "base", "call base handler")
	case res.IsNotSupported():
		return nil, errors.WrapInvalid(fmt.Errorf("%w: event handling not supported", errors.ErrBaseRejected),
			"Pipeline", "base", "call base handler")
	case res.Value() == nil:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: null result", errors.ErrBaseRejected),
			"Pipeline", "base", "call base handler")
	}
	return res.Value(), nil
}

// handleEvent calls HandleEvent on d and decodes the response. A Supported
// result holding a nil document means the handler returned null.
func (p *Pipeline) handleEvent(ctx context.Context, d handler.Descriptor, body []byte) handler.Result[jsonmerge.Document] {
	return invoke.Call(ctx, p.invoker, d, handler.CapabilityHandleEvent,
		func(ctx context.Context) handler.Result[jsonmerge.Document] {
			payload := make(json.RawMessage, len(body))
			copy(payload, body)
			return handler.Map(d.Instance.HandleEvent(ctx, payload), decodeEventResult)
		})
}

func decodeEventResult(raw json.RawMessage) (jsonmerge.Document, error) {
	if jsonmerge.IsNull(raw) {
		return nil, nil
	}
	doc, err := jsonmerge.Parse(raw)
	if err != nil {
		return nil, errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrHandlerFailure, err),
			"Pipeline", "decodeEventResult", "decode event result")
	}
	return doc, nil
}

// done publishes and persists the final document. Failures are logged only.
func (p *Pipeline) done(ctx context.Context, final jsonmerge.Document) {
	encoded, err := json.Marshal(final)
	if err != nil {
		p.logger.Error("encoding final document failed", "error", err)
		return
	}

	if err := p.sink.Publish(ctx, notify.NewMessage(encoded, p.now())); err != nil {
		p.logger.Warn("publishing notification failed", "error", err)
	}

	if p.store == nil {
		return
	}
	if err := p.store.Upsert(ctx, encoded); err != nil {
		p.logger.Error("persisting result failed", "error", err)
		p.metrics.RecordStoreWrite("failed")
		return
	}
	p.metrics.RecordStoreWrite("ok")
}
