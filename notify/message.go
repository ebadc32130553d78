package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Message is published once per completed pipeline run.
type Message struct {
	JSONData  string    `json:"jsonData"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage wraps a final pipeline document.
func NewMessage(doc json.RawMessage, at time.Time) Message {
	return Message{JSONData: string(doc), Timestamp: at.UTC()}
}

// Sink accepts notifications.
type Sink interface {
	Publish(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, msg Message) error

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Discard drops every message.
var Discard Sink = SinkFunc(func(context.Context, Message) error { return nil })
