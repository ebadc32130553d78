// Package http serves the composed form and the event pipeline over HTTP.
package http

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/gateway"
	"github.com/Ironwood-Cyber/decorator-demo/health"
	"github.com/Ironwood-Cyber/decorator-demo/jsonmerge"
	"github.com/Ironwood-Cyber/decorator-demo/metric"
)

// Composer produces the merged form definition.
type Composer interface {
	Data(ctx context.Context) jsonmerge.Document
	Schema(ctx context.Context) jsonmerge.Document
	UISchema(ctx context.Context) jsonmerge.Document
	ClientEventScript(ctx context.Context) jsonmerge.Document
}

// Executor runs one submitted event.
type Executor interface {
	Execute(ctx context.Context, payload []byte) (jsonmerge.Document, error)
}

// getOrGenerateRequestID extracts the request ID from headers or generates a
// new one.
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}
	return uuid.NewString()
}

// Gateway serves the form routes.
type Gateway struct {
	config   gateway.Config
	composer Composer
	executor Executor

	monitor       *health.Monitor
	notifications http.Handler
	limiter       *rate.Limiter
	metrics       *metric.Metrics
	logger        *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMetrics counts requests by route and status code.
func WithMetrics(m *metric.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithHealth serves the monitor's aggregate at /api/health.
func WithHealth(monitor *health.Monitor) Option {
	return func(g *Gateway) { g.monitor = monitor }
}

// WithNotifications serves h at /api/notifications, typically a notify.Relay.
func WithNotifications(h http.Handler) Option {
	return func(g *Gateway) { g.notifications = h }
}

// NewGateway creates a gateway over composer and executor.
func NewGateway(cfg gateway.Config, composer Composer, executor Executor, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Gateway", "NewGateway", "config validation")
	}
	if composer == nil || executor == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Gateway", "NewGateway",
			"aggregator and pipeline are required")
	}

	g := &Gateway{
		config:   cfg,
		composer: composer,
		executor: executor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if cfg.EventRateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.EventRateLimit), cfg.EventRateBurst)
	}
	g.logger = g.logger.With("component", "http-gateway")
	return g, nil
}

type route struct {
	path    string
	method  string
	handler http.HandlerFunc
}

func (g *Gateway) routes() []route {
	rs := []route{
		{gateway.PathData, http.MethodGet, g.document(Composer.Data)},
		{gateway.PathSchema, http.MethodGet, g.document(Composer.Schema)},
		{gateway.PathUISchema, http.MethodGet, g.document(Composer.UISchema)},
		{gateway.PathEventHandler, http.MethodGet, g.handleEventHandler},
		{gateway.PathEvent, http.MethodPost, g.handleEvent},
		{gateway.PathHealth, http.MethodGet, g.handleHealth},
	}
	if g.notifications != nil {
		rs = append(rs, route{gateway.PathNotifications, http.MethodGet, g.notifications.ServeHTTP})
	}
	return rs
}

// RegisterHTTPHandlers implements gateway.HTTPHandler.
func (g *Gateway) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	for _, rt := range g.routes() {
		mux.HandleFunc(prefix+rt.path, g.createRouteHandler(rt))
	}
}

// Handler returns a mux with every route mounted at the root.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	g.RegisterHTTPHandlers("/", mux)
	return mux
}

// createRouteHandler wraps a route with request IDs, CORS, the method check
// and request metrics.
func (g *Gateway) createRouteHandler(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := getOrGenerateRequestID(r)
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			g.metrics.RecordHTTPRequest(rt.path, strconv.Itoa(rec.status))
		}()

		if g.config.EnableCORS {
			g.applyCORS(rec, r)
			if r.Method == http.MethodOptions {
				rec.WriteHeader(http.StatusNoContent)
				return
			}
		}

		if r.Method != rt.method {
			g.writeError(rec, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
			return
		}

		ctx := r.Context()
		if rt.path != gateway.PathNotifications {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.config.RequestTimeout)
			defer cancel()
		}
		rt.handler(rec, r.WithContext(withRequestLogger(ctx, g.logger.With("request_id", requestID))))
	}
}

func (g *Gateway) document(fetch func(Composer, context.Context) jsonmerge.Document) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.writeJSON(w, http.StatusOK, fetch(g.composer, r.Context()))
	}
}

func (g *Gateway) handleEventHandler(w http.ResponseWriter, r *http.Request) {
	doc := g.composer.ClientEventScript(r.Context())
	if len(doc) == 0 {
		g.writeError(w, http.StatusBadRequest, "no client event handler available")
		return
	}
	g.writeJSON(w, http.StatusOK, doc)
}

func (g *Gateway) handleEvent(w http.ResponseWriter, r *http.Request) {
	if g.limiter != nil && !g.limiter.Allow() {
		g.writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, g.config.MaxRequestSize+1))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > g.config.MaxRequestSize {
		g.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("request body exceeds maximum size of %d bytes", g.config.MaxRequestSize))
		return
	}

	doc, err := g.executor.Execute(r.Context(), body)
	if err != nil {
		status := g.mapErrorToHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			requestLogger(r.Context(), g.logger).Error("event processing failed", "error", err)
		}
		g.writeError(w, status, g.sanitizeError(err))
		return
	}
	g.writeJSON(w, http.StatusOK, doc)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if g.monitor == nil {
		g.writeJSON(w, http.StatusOK, health.NewHealthy("formgateway", ""))
		return
	}
	status := g.monitor.AggregateHealth("formgateway")
	code := http.StatusOK
	if status.State == health.StateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	g.writeJSON(w, code, status)
}

// applyCORS applies CORS headers to the response
func (g *Gateway) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")

	allowed := false
	for _, allowedOrigin := range g.config.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			allowed = true
			break
		}
	}

	if allowed {
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")
	}
}

// mapErrorToHTTPStatus maps pipeline errors to HTTP status codes
func (g *Gateway) mapErrorToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sanitizeError returns a safe error message for external clients. Handler
// names and internal details stay in the logs.
func (g *Gateway) sanitizeError(err error) string {
	switch {
	case err == nil:
		return "internal server error"
	case stderrors.Is(err, errors.ErrBaseRejected):
		return "event rejected: processing failed"
	case stderrors.Is(err, errors.ErrInvalidPayload):
		return "invalid event payload"
	case errors.IsInvalid(err):
		return "invalid request"
	case stderrors.Is(err, context.DeadlineExceeded):
		return "request timeout"
	case errors.IsTransient(err):
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}

func (g *Gateway) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		g.logger.Error("encoding response failed", "error", err)
		g.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(data)
}

// writeError writes an error response
func (g *Gateway) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	data, _ := json.Marshal(map[string]any{
		"error":  message,
		"status": statusCode,
	})
	_, _ = w.Write(data)
}

// statusRecorder remembers the status code for metrics. It passes hijacking
// through so websocket upgrades work behind it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	s.wroteHeader = true
	return h.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

type loggerKey struct{}

func withRequestLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func requestLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}
