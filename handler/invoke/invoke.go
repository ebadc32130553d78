// Package invoke calls handler capabilities under a deadline and records the
// outcome in logs, metrics and the health monitor.
package invoke

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/health"
	"github.com/Ironwood-Cyber/decorator-demo/metric"
)

// DefaultTimeout bounds one capability call.
const DefaultTimeout = 5 * time.Second

// Invoker is shared by the aggregator and the pipeline. The zero value is not
// usable; build one with New.
type Invoker struct {
	logger  *slog.Logger
	metrics *metric.Metrics
	health  *health.Monitor
	timeout time.Duration
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithMetrics records every call in m. A nil m disables metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(i *Invoker) { i.metrics = m }
}

// WithHealth reports handler failures and recoveries to monitor.
func WithHealth(monitor *health.Monitor) Option {
	return func(i *Invoker) { i.health = monitor }
}

// WithTimeout sets the per-call deadline. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// New creates an Invoker.
func New(opts ...Option) *Invoker {
	i := &Invoker{logger: slog.Default(), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Logger returns the invoker's logger.
func (i *Invoker) Logger() *slog.Logger { return i.logger }

// Timeout returns the per-call deadline.
func (i *Invoker) Timeout() time.Duration { return i.timeout }

// Call runs fn for descriptor d under the invoker's deadline. A call that
// overruns the deadline or panics is reported as Failed. NotSupported is logged
// at Debug only; failures are logged at Warn and degrade the handler's health.
func Call[T any](
	ctx context.Context,
	inv *Invoker,
	d handler.Descriptor,
	capability handler.Capability,
	fn func(ctx context.Context) handler.Result[T],
) handler.Result[T] {
	start := time.Now()
	res := run(ctx, inv.timeout, fn)
	elapsed := time.Since(start)

	inv.metrics.RecordHandlerCall(d.Name, string(capability), res.Outcome().String(), elapsed)

	switch res.Outcome() {
	case handler.OutcomeNotSupported:
		inv.logger.Debug("capability not supported",
			"handler", d.Name, "capability", capability)
	case handler.OutcomeFailed:
		inv.logger.Warn("handler call failed",
			"handler", d.Name, "capability", capability, "duration", elapsed,
			"error", res.Err(), "error_class", errors.Classify(res.Err()).String())
		if inv.health != nil {
			inv.health.RecordFailure(d.Name, res.Err())
		}
	default:
		if inv.health != nil {
			inv.health.RecordSuccess(d.Name)
		}
	}
	return res
}

func run[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) handler.Result[T]) handler.Result[T] {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan handler.Result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- handler.Failed[T](errors.WrapTransient(
					fmt.Errorf("%w: panic: %v", errors.ErrHandlerFailure, r), "invoke", "Call", "run handler"))
			}
		}()
		done <- fn(callCtx)
	}()

	select {
	case res := <-done:
		return res
	case <-callCtx.Done():
		return handler.Failed[T](errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrHandlerFailure, callCtx.Err()), "invoke", "Call", "await handler"))
	}
}
