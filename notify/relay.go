package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
)

// Envelope frames a notification on the websocket.
type Envelope struct {
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	Timestamp int64   `json:"timestamp"`
	Payload   Message `json:"payload"`
}

type relayClient struct {
	id          string
	conn        *websocket.Conn
	connectedAt time.Time
	writeMu     sync.Mutex
	closeOnce   sync.Once
	closed      atomic.Bool
}

// Relay pushes notifications to browser clients over websockets. It is an
// http.Handler for the upgrade endpoint and a Sink for delivery.
type Relay struct {
	upgrader     websocket.Upgrader
	logger       *slog.Logger
	writeTimeout time.Duration

	mu      sync.RWMutex
	clients map[string]*relayClient

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRelay creates a relay. allowedOrigins empty or containing "*" accepts
// any origin.
func NewRelay(logger *slog.Logger, allowedOrigins []string) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{
		logger:       logger.With("component", "notify-relay"),
		writeTimeout: 10 * time.Second,
		clients:      make(map[string]*relayClient),
		stop:         make(chan struct{}),
	}
	r.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return r
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(req *http.Request) bool {
		origin := req.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Start pings clients every interval until Close.
func (r *Relay) Start(interval time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.pingClients()
			}
		}
	}()
}

// ServeHTTP upgrades the request and registers the client.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	client := &relayClient{id: uuid.NewString(), conn: conn, connectedAt: time.Now()}

	r.mu.Lock()
	r.clients[client.id] = client
	count := len(r.clients)
	r.mu.Unlock()

	r.logger.Debug("websocket client connected", "client_id", client.id, "clients", count)

	r.wg.Add(1)
	go r.readLoop(client)
}

// readLoop discards inbound frames and detects disconnects.
func (r *Relay) readLoop(c *relayClient) {
	defer r.wg.Done()
	defer r.remove(c)

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})
	_ = c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (r *Relay) remove(c *relayClient) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		r.mu.Lock()
		delete(r.clients, c.id)
		r.mu.Unlock()
		_ = c.conn.Close()
		r.logger.Debug("websocket client disconnected", "client_id", c.id,
			"connected_for", time.Since(c.connectedAt))
	})
}

func (r *Relay) snapshot() []*relayClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*relayClient, 0, len(r.clients))
	for _, c := range r.clients {
		if !c.closed.Load() {
			out = append(out, c)
		}
	}
	return out
}

func (r *Relay) write(c *relayClient, msgType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	return c.conn.WriteMessage(msgType, data)
}

// Publish implements Sink by broadcasting msg to every connected client.
// Clients that fail to accept the frame are dropped.
func (r *Relay) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(Envelope{
		Type:      "notification",
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   msg,
	})
	if err != nil {
		return errors.WrapInvalid(err, "Relay", "Publish", "marshal envelope")
	}

	var wg sync.WaitGroup
	for _, c := range r.snapshot() {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(c *relayClient) {
			defer wg.Done()
			if err := r.write(c, websocket.TextMessage, data); err != nil {
				r.remove(c)
			}
		}(c)
	}
	wg.Wait()
	return nil
}

func (r *Relay) pingClients() {
	for _, c := range r.snapshot() {
		if err := r.write(c, websocket.PingMessage, nil); err != nil {
			r.remove(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (r *Relay) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close disconnects every client and stops the ping loop.
func (r *Relay) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })
	for _, c := range r.snapshot() {
		_ = r.write(c, websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		r.remove(c)
	}
	r.wg.Wait()
	return nil
}
