package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Ironwood-Cyber/decorator-demo/metric"
)

// Subscriber is the part of natsclient.Client a Consumer needs.
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
}

// Consumer listens on the notification subject, logs each message and
// forwards it to an optional downstream sink such as the websocket Relay.
type Consumer struct {
	sub     Subscriber
	subject string
	logger  *slog.Logger
	metrics *metric.Metrics
	forward Sink
}

// NewConsumer creates a consumer. forward may be nil.
func NewConsumer(sub Subscriber, subject string, logger *slog.Logger, metrics *metric.Metrics, forward Sink) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		sub:     sub,
		subject: subject,
		logger:  logger.With("component", "notify-consumer", "subject", subject),
		metrics: metrics,
		forward: forward,
	}
}

// Start subscribes. Messages are handled until ctx is cancelled or the
// connection closes.
func (c *Consumer) Start(ctx context.Context) error {
	return c.sub.Subscribe(ctx, c.subject, c.handle)
}

func (c *Consumer) handle(ctx context.Context, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("discarding malformed notification", "error", err, "bytes", len(data))
		return
	}

	c.metrics.RecordNotificationReceived()
	c.logger.Info("notification received", "timestamp", msg.Timestamp, "json_data", msg.JSONData)

	if c.forward != nil {
		if err := c.forward.Publish(ctx, msg); err != nil {
			c.logger.Warn("forwarding notification failed", "error", err)
		}
	}
}
