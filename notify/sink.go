package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/metric"
	"github.com/Ironwood-Cyber/decorator-demo/natsclient"
	"github.com/Ironwood-Cyber/decorator-demo/pkg/worker"
)

// Publisher is the part of natsclient.Client a NATSSink needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

var _ Publisher = (*natsclient.Client)(nil)

// NATSSink publishes messages as JSON on a core NATS subject.
type NATSSink struct {
	pub     Publisher
	subject string
}

// NewNATSSink creates a sink for subject.
func NewNATSSink(pub Publisher, subject string) *NATSSink {
	return &NATSSink{pub: pub, subject: subject}
}

// Publish implements Sink.
func (s *NATSSink) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.WrapInvalid(err, "NATSSink", "Publish", "marshal message")
	}
	return s.pub.Publish(ctx, s.subject, data)
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

// Publish implements Sink.
func (f Fanout) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// AsyncSink hands messages to a worker pool so Publish returns immediately.
// Delivery failures are logged and counted, never returned.
type AsyncSink struct {
	pool    *worker.Pool[Message]
	logger  *slog.Logger
	metrics *metric.Metrics
}

// AsyncOption configures an AsyncSink.
type AsyncOption func(*asyncConfig)

type asyncConfig struct {
	workers   int
	queueSize int
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
}

// WithWorkers sets the pool size and queue depth.
func WithWorkers(workers, queueSize int) AsyncOption {
	return func(c *asyncConfig) {
		c.workers = workers
		c.queueSize = queueSize
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AsyncOption {
	return func(c *asyncConfig) {
		c.logger = logger
	}
}

// WithMetrics records publish outcomes and pool metrics.
func WithMetrics(registry *metric.MetricsRegistry) AsyncOption {
	return func(c *asyncConfig) {
		c.registry = registry
	}
}

// NewAsyncSink wraps next. Call Start before publishing and Stop on shutdown.
func NewAsyncSink(next Sink, opts ...AsyncOption) (*AsyncSink, error) {
	cfg := asyncConfig{workers: 2, queueSize: 128, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &AsyncSink{logger: cfg.logger, metrics: cfg.registry.CoreMetrics()}

	poolOpts := []worker.Option[Message]{worker.WithLogger[Message](cfg.logger)}
	if cfg.registry != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[Message](cfg.registry))
	}

	pool, err := worker.NewPool("notify", cfg.workers, cfg.queueSize,
		func(ctx context.Context, msg Message) error {
			if err := next.Publish(ctx, msg); err != nil {
				s.metrics.RecordNotification("failed")
				return errors.Wrap(err, "AsyncSink", "deliver", "publish notification")
			}
			s.metrics.RecordNotification("published")
			return nil
		}, poolOpts...)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return s, nil
}

// Start launches the delivery workers.
func (s *AsyncSink) Start(ctx context.Context) error {
	return s.pool.Start(ctx)
}

// Publish implements Sink. It only fails when the message cannot be queued.
func (s *AsyncSink) Publish(_ context.Context, msg Message) error {
	if err := s.pool.Submit(msg); err != nil {
		s.metrics.RecordNotification("dropped")
		return errors.WrapTransient(err, "AsyncSink", "Publish", "queue notification")
	}
	return nil
}

// Stop drains queued messages for up to timeout.
func (s *AsyncSink) Stop(timeout time.Duration) error {
	return s.pool.Stop(timeout)
}
