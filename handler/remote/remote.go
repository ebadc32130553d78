package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/pkg/cache"
	"github.com/Ironwood-Cyber/decorator-demo/pkg/retry"
)

// Routes served by a handler service.
const (
	PathData         = "/api/data"
	PathSchema       = "/api/schema"
	PathUISchema     = "/api/uischema"
	PathEventHandler = "/api/eventhandler"
	PathEvent        = "/api/event"
)

// DefaultTimeout bounds one HTTP attempt.
const DefaultTimeout = 5 * time.Second

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 << 20

// Handler calls a handler service over HTTP.
type Handler struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	retry   errors.RetryConfig
	logger  *slog.Logger

	// docs holds schema, UI schema and script responses. Data is never cached.
	docs *cache.TTL[response]
}

// Option configures a Handler.
type Option func(*Handler)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Handler) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(rc errors.RetryConfig) Option {
	return func(h *Handler) { h.retry = rc }
}

// WithDocumentCache keeps schema, UI schema and script responses for ttl.
// A non-positive ttl disables caching.
func WithDocumentCache(ttl time.Duration) Option {
	return func(h *Handler) {
		if docs, err := cache.NewTTL[response](ttl); err == nil {
			h.docs = docs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Handler for the service at baseURL.
func New(baseURL string, opts ...Option) (*Handler, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.WrapInvalid(fmt.Errorf("invalid handler url %q", baseURL),
			"remote", "New", "url validation")
	}

	h := &Handler{
		baseURL: strings.TrimRight(u.String(), "/"),
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		retry:   errors.DefaultRetryConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "remote", "url", h.baseURL)
	return h, nil
}

// URL returns the service base URL.
func (h *Handler) URL() string { return h.baseURL }

// Data implements handler.Handler.
func (h *Handler) Data(ctx context.Context) handler.Result[json.RawMessage] {
	return h.document(ctx, PathData)
}

// Schema implements handler.Handler.
func (h *Handler) Schema(ctx context.Context) handler.Result[json.RawMessage] {
	return h.document(ctx, PathSchema)
}

// UISchema implements handler.Handler.
func (h *Handler) UISchema(ctx context.Context) handler.Result[json.RawMessage] {
	return h.document(ctx, PathUISchema)
}

// ClientEventScript implements handler.Handler. The service returns the script
// source as the response body.
func (h *Handler) ClientEventScript(ctx context.Context) handler.Result[string] {
	status, body, err := h.get(ctx, PathEventHandler)
	if err != nil {
		return handler.Failed[string](err)
	}
	switch status {
	case http.StatusOK:
		return handler.Supported(string(body))
	case http.StatusNotImplemented:
		return handler.NotSupported[string]()
	default:
		return handler.Failed[string](unexpectedStatus(PathEventHandler, status))
	}
}

// HandleEvent implements handler.Handler.
func (h *Handler) HandleEvent(ctx context.Context, payload json.RawMessage) handler.Result[json.RawMessage] {
	status, body, err := h.do(ctx, http.MethodPost, PathEvent, payload)
	if err != nil {
		return handler.Failed[json.RawMessage](err)
	}
	switch status {
	case http.StatusOK:
		return handler.Supported(json.RawMessage(bytes.TrimSpace(body)))
	case http.StatusUnprocessableEntity:
		return handler.Supported[json.RawMessage](nil)
	case http.StatusNotImplemented:
		return handler.NotSupported[json.RawMessage]()
	default:
		return handler.Failed[json.RawMessage](unexpectedStatus(PathEvent, status))
	}
}

func (h *Handler) document(ctx context.Context, path string) handler.Result[json.RawMessage] {
	status, body, err := h.get(ctx, path)
	if err != nil {
		return handler.Failed[json.RawMessage](err)
	}
	switch status {
	case http.StatusOK:
		return handler.Supported(json.RawMessage(body))
	case http.StatusNotImplemented:
		return handler.NotSupported[json.RawMessage]()
	default:
		return handler.Failed[json.RawMessage](unexpectedStatus(path, status))
	}
}

type response struct {
	status int
	body   []byte
}

// get serves GET requests, from the document cache when one is configured.
// Only 200 and 501 answers are cached.
func (h *Handler) get(ctx context.Context, path string) (int, []byte, error) {
	cacheable := h.docs != nil && path != PathData
	if cacheable {
		if r, ok := h.docs.Get(path); ok {
			return r.status, r.body, nil
		}
	}

	status, body, err := h.do(ctx, http.MethodGet, path, nil)
	if err == nil && cacheable && (status == http.StatusOK || status == http.StatusNotImplemented) {
		_, _ = h.docs.Set(path, response{status: status, body: body})
	}
	return status, body, err
}

// do performs one request with retries. Connection errors and 5xx responses
// other than 501 are retried; the final status and body are returned.
func (h *Handler) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	resp, err := retry.DoWithResult(ctx, h.retry.ToRetryConfig(), func() (response, error) {
		r, err := h.attempt(ctx, method, path, payload)
		if err != nil {
			if !errors.IsTransient(err) {
				return r, retry.NonRetryable(err)
			}
			h.logger.Debug("handler service call failed, retrying", "path", path, "error", err)
			return r, err
		}
		if r.status >= 500 && r.status != http.StatusNotImplemented {
			return r, errors.WrapTransient(unexpectedStatus(path, r.status), "remote", "do", "call handler service")
		}
		return r, nil
	})
	if err != nil {
		if resp.status != 0 {
			return resp.status, resp.body, nil
		}
		return 0, nil, err
	}
	return resp.status, resp.body, nil
}

func (h *Handler) attempt(ctx context.Context, method, path string, payload []byte) (response, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return response{}, errors.WrapInvalid(err, "remote", "attempt", "build request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return response{}, errors.WrapTransient(err, "remote", "attempt", fmt.Sprintf("%s %s", method, path))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return response{}, errors.WrapTransient(err, "remote", "attempt", "read response")
	}
	return response{status: resp.StatusCode, body: data}, nil
}

func unexpectedStatus(path string, status int) error {
	return fmt.Errorf("%w: %s returned HTTP %d", errors.ErrHandlerFailure, path, status)
}

var _ handler.Handler = (*Handler)(nil)
