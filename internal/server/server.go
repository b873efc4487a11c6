// Package server exposes the dump pipeline over HTTP.
//
// Routes:
//
//	POST /v1/dump      snapshot JSON in, pipeline.Result out (?refresh=true skips the cache)
//	POST /v1/match     {"frame": {...}, "candidates": [...]} in, {"matched_window_id", "score"} out
//	GET  /healthz      liveness
//	GET  /metrics      Prometheus metrics
//
// Errors are returned as {"code": "...", "message": "..."} with a status
// derived from the error code.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/history"
	"github.com/matzehuels/panelmap/pkg/match"
	"github.com/matzehuels/panelmap/pkg/pipeline"
	"github.com/matzehuels/panelmap/pkg/snapshot"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8087"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// HistoryIDHeader carries the history id of a recorded dump.
const HistoryIDHeader = "X-Panelmap-History-Id"

// Config configures a Server.
type Config struct {
	Runner  *pipeline.Runner
	History *history.Store // optional
	Options pipeline.Options
	Logger  *log.Logger

	// Registry receives the server's metrics. Nil means a fresh registry.
	Registry *prometheus.Registry
}

// Server serves the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	history  *history.Store
	opts     pipeline.Options
	logger   *log.Logger
	registry *prometheus.Registry
	metrics  *Metrics
}

// New creates a server. The runner is required.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "server needs a pipeline runner")
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	return &Server{
		runner:   cfg.Runner,
		history:  cfg.History,
		opts:     cfg.Options,
		logger:   cfg.Logger,
		registry: cfg.Registry,
		metrics:  NewMetrics(cfg.Registry),
	}, nil
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/dump", s.handleDump)
		r.Post("/match", s.handleMatch)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "listen %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("serving", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	snap, err := snapshot.Read(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}

	opts := s.opts
	if v := r.URL.Query().Get("refresh"); v != "" {
		refresh, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "refresh: %q is not a boolean", v))
			return
		}
		opts.Refresh = refresh
	}
	if owners := r.URL.Query()["owner"]; len(owners) > 0 {
		opts.Owners = owners
	}

	res, err := s.runner.DumpWithCache(r.Context(), snap, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.history != nil {
		e, err := s.history.Record(r.Context(), res, "serve")
		if err != nil {
			s.logger.Warn("history record failed", "error", err)
		} else {
			w.Header().Set(HistoryIDHeader, e.ID)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

type matchRequest struct {
	Frame      *geom.Rect         `json:"frame"`
	Candidates []match.Descriptor `json:"candidates"`
	Owners     []string           `json:"owners,omitempty"`
	Tolerances *match.Tolerances  `json:"tolerances,omitempty"`
}

type matchResponse struct {
	ID    *int64   `json:"matched_window_id"`
	Score *float64 `json:"score"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode match request"))
		return
	}
	if req.Frame == nil {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "frame is required"))
		return
	}

	tol := s.opts.Tolerances
	if req.Tolerances != nil {
		if err := req.Tolerances.Validate(); err != nil {
			s.writeError(w, err)
			return
		}
		tol = req.Tolerances
	}
	owners := s.opts.Owners
	if req.Owners != nil {
		owners = req.Owners
	}

	var resp matchResponse
	if res, ok := (&match.Matcher{Tolerances: tol}).Match(req.Frame, match.FilterOwners(req.Candidates, owners...)); ok {
		resp.ID, resp.Score = &res.ID, &res.Score
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
			Code:    errors.ErrCodeInvalidInput,
			Message: "request body too large",
		})
		return
	}

	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Code: code, Message: errors.UserMessage(err)})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidTree,
		errors.ErrCodeInvalidSnapshot, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		s.metrics.observeRequest(route, ww.Status())
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
