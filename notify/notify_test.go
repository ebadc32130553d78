package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ironwood-Cyber/decorator-demo/metric"
	"github.com/Ironwood-Cyber/decorator-demo/notify"
	tu "github.com/Ironwood-Cyber/decorator-demo/testutil"
)

type fakeBus struct {
	mu       sync.Mutex
	subject  string
	data     [][]byte
	handler  func(context.Context, []byte)
	failWith error
}

func (b *fakeBus) Publish(_ context.Context, subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.subject = subject
	b.data = append(b.data, data)
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, subject string, h func(context.Context, []byte)) error {
	b.subject = subject
	b.handler = h
	return nil
}

func TestNewMessage(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("x", 3600))
	msg := notify.NewMessage(json.RawMessage(`{"result":50}`), at)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonData":"{\"result\":50}","timestamp":"2024-05-06T06:08:09Z"}`, string(data))
}

func TestNATSSink_Publish(t *testing.T) {
	bus := &fakeBus{}
	sink := notify.NewNATSSink(bus, "formgateway.events")

	require.NoError(t, sink.Publish(context.Background(), notify.Message{JSONData: `{}`}))
	assert.Equal(t, "formgateway.events", bus.subject)
	require.Len(t, bus.data, 1)
	assert.Contains(t, string(bus.data[0]), `"jsonData":"{}"`)
}

func TestFanout_JoinsErrors(t *testing.T) {
	ok := &tu.RecordingSink{}
	bad := &tu.RecordingSink{Err: errors.New("down")}

	err := notify.Fanout{ok, bad}.Publish(context.Background(), notify.Message{JSONData: "{}"})
	require.Error(t, err)
	assert.Len(t, ok.Messages(), 1)
	assert.Len(t, bad.Messages(), 1)
}

func TestAsyncSink_DeliversAndCounts(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	next := &tu.RecordingSink{}
	sink, err := notify.NewAsyncSink(next, notify.WithMetrics(registry), notify.WithWorkers(1, 4))
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))

	require.NoError(t, sink.Publish(context.Background(), notify.Message{JSONData: `{"a":1}`}))
	require.NoError(t, sink.Stop(time.Second))

	require.Len(t, next.Messages(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(
		registry.CoreMetrics().NotificationsPublished.WithLabelValues("published")))
}

func TestAsyncSink_FailureIsNotReturned(t *testing.T) {
	rec := tu.NewLogRecorder()
	next := &tu.RecordingSink{Err: errors.New("broker down")}
	sink, err := notify.NewAsyncSink(next, notify.WithLogger(rec.Logger()))
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))

	assert.NoError(t, sink.Publish(context.Background(), notify.Message{JSONData: "{}"}))
	require.NoError(t, sink.Stop(time.Second))

	warnings := rec.AtLevel(slog.LevelWarn)
	require.Len(t, warnings, 1)
	assert.Equal(t, "worker pool item failed", warnings[0].Message)
}

func TestConsumer_LogsAndForwards(t *testing.T) {
	rec := tu.NewLogRecorder()
	bus := &fakeBus{}
	forward := &tu.RecordingSink{}
	registry := metric.NewMetricsRegistry()

	c := notify.NewConsumer(bus, "formgateway.events", rec.Logger(), registry.CoreMetrics(), forward)
	require.NoError(t, c.Start(context.Background()))
	require.NotNil(t, bus.handler)

	bus.handler(context.Background(), []byte(`{"jsonData":"{\"result\":50}","timestamp":"2024-01-01T00:00:00Z"}`))
	bus.handler(context.Background(), []byte(`garbage`))

	got, ok := rec.Find("notification received")
	require.True(t, ok)
	assert.Equal(t, slog.LevelInfo, got.Level)
	assert.Equal(t, `{"result":50}`, got.Attrs["json_data"])

	_, ok = rec.Find("discarding malformed notification")
	assert.True(t, ok)

	require.Len(t, forward.Messages(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(registry.CoreMetrics().NotificationsReceived))
}

func TestRelay_BroadcastsToClients(t *testing.T) {
	relay := notify.NewRelay(slog.Default(), []string{"*"})
	server := httptest.NewServer(relay)
	defer server.Close()
	defer relay.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return relay.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, relay.Publish(context.Background(), notify.Message{JSONData: `{"result":50}`}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env notify.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "notification", env.Type)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, `{"result":50}`, env.Payload.JSONData)
}

func TestRelay_RejectsForeignOrigin(t *testing.T) {
	relay := notify.NewRelay(nil, []string{"http://allowed.example"})
	server := httptest.NewServer(relay)
	defer server.Close()
	defer relay.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}
