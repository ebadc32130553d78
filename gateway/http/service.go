package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/jsonmerge"
)

// ServiceOption configures ServeHandler.
type ServiceOption func(*service)

// WithServiceLogger sets the handler service logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceMaxRequestSize bounds POST /api/event bodies.
func WithServiceMaxRequestSize(n int64) ServiceOption {
	return func(s *service) {
		if n > 0 {
			s.maxRequestSize = n
		}
	}
}

type service struct {
	h              handler.Handler
	logger         *slog.Logger
	maxRequestSize int64
}

// ServeHandler exposes h as a handler service on the five capability routes.
// NotSupported answers 501, a null event result 422 and a failure 500.
func ServeHandler(h handler.Handler, opts ...ServiceOption) http.Handler {
	s := &service{h: h, logger: slog.Default(), maxRequestSize: 1 << 20}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/data", s.document(handler.Handler.Data))
	mux.HandleFunc("GET /api/schema", s.document(handler.Handler.Schema))
	mux.HandleFunc("GET /api/uischema", s.document(handler.Handler.UISchema))
	mux.HandleFunc("GET /api/eventhandler", s.handleScript)
	mux.HandleFunc("POST /api/event", s.handleEvent)
	return mux
}

func (s *service) document(fetch func(handler.Handler, context.Context) handler.Result[json.RawMessage]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := fetch(s.h, r.Context())
		if !s.writeOutcome(w, r, res.Outcome(), res.Err()) {
			return
		}
		writeRaw(w, "application/json", res.Value())
	}
}

func (s *service) handleScript(w http.ResponseWriter, r *http.Request) {
	res := s.h.ClientEventScript(r.Context())
	if !s.writeOutcome(w, r, res.Outcome(), res.Err()) {
		return
	}
	writeRaw(w, "text/javascript; charset=utf-8", []byte(res.Value()))
}

func (s *service) handleEvent(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxRequestSize+1))
	if err != nil || int64(len(body)) > s.maxRequestSize {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res := s.h.HandleEvent(r.Context(), body)
	if !s.writeOutcome(w, r, res.Outcome(), res.Err()) {
		return
	}
	if jsonmerge.IsNull(res.Value()) {
		http.Error(w, "event could not be processed", http.StatusUnprocessableEntity)
		return
	}
	writeRaw(w, "application/json", res.Value())
}

// writeOutcome answers non-Supported outcomes and reports whether the caller
// should write the value.
func (s *service) writeOutcome(w http.ResponseWriter, r *http.Request, outcome handler.Outcome, err error) bool {
	switch outcome {
	case handler.OutcomeSupported:
		return true
	case handler.OutcomeNotSupported:
		http.Error(w, "not supported", http.StatusNotImplemented)
	default:
		s.logger.Warn("handler call failed", "path", r.URL.Path, "error", err)
		http.Error(w, "handler failure", http.StatusInternalServerError)
	}
	return false
}

func writeRaw(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
