// Package server exposes a [normalizer.Normalizer] over HTTP.
//
// Routes:
//
//   - POST /v1/normalize: normalize one text or a batch.
//   - GET /v1/info: language and grammar packs in use.
//   - GET /healthz, GET /readyz: liveness and readiness.
//   - GET /metrics: Prometheus scrape endpoint.
//
// The server starts not ready and becomes ready once [Server.SetNormalizer]
// is called, so grammars can be built after the listener is up.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/spokenform/internal/health"
	"github.com/MrWong99/spokenform/internal/normalizer"
	"github.com/MrWong99/spokenform/internal/observe"
)

// DefaultMaxBodyBytes limits request bodies.
const DefaultMaxBodyBytes = 1 << 20

var errNotReady = errors.New("grammars are not ready")

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metric instruments used by the request middleware.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMaxBodyBytes limits request bodies to n bytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// Server serves normalization requests. The normalizer and the default
// options can be swapped at any time, e.g. after a config reload.
type Server struct {
	logger  *slog.Logger
	metrics *observe.Metrics
	maxBody int64

	norm     atomic.Pointer[normalizer.Normalizer]
	defaults atomic.Pointer[normalizer.Options]
	gate     health.Gate
}

// New returns a server without a normalizer.
func New(opts ...Option) *Server {
	s := &Server{
		logger:  slog.Default(),
		metrics: observe.DefaultMetrics(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(s)
	}
	s.defaults.Store(&normalizer.Options{})
	return s
}

// SetNormalizer installs n and marks the server ready.
func (s *Server) SetNormalizer(n *normalizer.Normalizer) {
	s.norm.Store(n)
	s.gate.Open(nil)
}

// Fail records a failed grammar build. The server turns not ready only
// when no normalizer is installed; otherwise the previous one keeps
// serving.
func (s *Server) Fail(err error) {
	if s.norm.Load() != nil {
		s.logger.Warn("server: grammar rebuild failed, keeping previous normalizer", "err", err)
		return
	}
	s.gate.Open(err)
}

// SetDefaults sets the options used for request fields that are absent.
func (s *Server) SetDefaults(o normalizer.Options) {
	s.defaults.Store(&o)
}

// Handler returns the routed and instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/normalize", s.handleNormalize)
	mux.HandleFunc("GET /v1/info", s.handleInfo)
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(s.gate.Checker("grammars")).Register(mux)
	return observe.Middleware(s.metrics, s.logger)(mux)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully
// within timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, timeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %q: %w", addr, err)
	}
	return s.Serve(ctx, ln, timeout)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, timeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("server: listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// normalizeRequest is the body of POST /v1/normalize. Exactly one of Text
// and Texts must be set. Absent flags fall back to the server defaults.
type normalizeRequest struct {
	Text             *string  `json:"text"`
	Texts            []string `json:"texts"`
	PunctPreProcess  *bool    `json:"punct_pre_process"`
	PunctPostProcess *bool    `json:"punct_post_process"`
}

type normalizeResponse struct {
	Normalized string `json:"normalized"`
}

type normalizeListResponse struct {
	NormalizedList []string `json:"normalized_list"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type infoResponse struct {
	Language string   `json:"language"`
	Packs    []string `json:"packs"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	n := s.norm.Load()
	if n == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: errNotReady.Error()})
		return
	}

	var req normalizeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if (req.Text == nil) == (req.Texts == nil) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `exactly one of "text" and "texts" is required`})
		return
	}
	observe.Annotate(r.Context(),
		attribute.String("language", n.Language()),
		attribute.Bool("batch", req.Texts != nil),
	)

	opts := *s.defaults.Load()
	if req.PunctPreProcess != nil {
		opts.PunctuationPreProcess = *req.PunctPreProcess
	}
	if req.PunctPostProcess != nil {
		opts.PunctuationPostProcess = *req.PunctPostProcess
	}

	if req.Text != nil {
		out := n.Normalize(r.Context(), *req.Text, opts)
		writeJSON(w, http.StatusOK, normalizeResponse{Normalized: out})
		return
	}
	out, err := n.NormalizeList(r.Context(), req.Texts, opts)
	if err != nil {
		observe.Logger(r.Context(), s.logger).Warn("server: batch interrupted", "texts", len(req.Texts), "err", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, normalizeListResponse{NormalizedList: out})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	n := s.norm.Load()
	if n == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: errNotReady.Error()})
		return
	}
	observe.Annotate(r.Context(), attribute.String("language", n.Language()))
	writeJSON(w, http.StatusOK, infoResponse{Language: n.Language(), Packs: n.Packs()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
