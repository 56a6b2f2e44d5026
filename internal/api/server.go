package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/proxyfetch/internal/config"
	"github.com/JakeFAU/proxyfetch/internal/fetch"
	"github.com/JakeFAU/proxyfetch/internal/metrics"
)

const maxRequestBytes = 1 << 20

// BatchRunner executes a batch and returns its summary.
type BatchRunner interface {
	Run(ctx context.Context, req fetch.BatchRequest) (fetch.Summary, error)
}

// Server wires HTTP handlers to the batch orchestrator.
type Server struct {
	router  chi.Router
	handler http.Handler
	runner  BatchRunner
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner BatchRunner, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/scrape", s.scrape)

	s.router = r
	s.handler = otelhttp.NewHandler(r, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s
}

// Handler returns the traced Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"name":    s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}

type scrapeRequest struct {
	URLs           []string `json:"urls"`
	ProxyType      string   `json:"proxy_type"`
	MaxRetries     *int     `json:"max_retries"`
	TimeoutSeconds *float64 `json:"timeout_seconds"`
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	batch, err := toBatchRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The batch runs to completion even if the client goes away.
	summary, err := s.runner.Run(context.WithoutCancel(r.Context()), batch)
	switch {
	case errors.Is(err, fetch.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, "No URLs provided")
		return
	case err != nil:
		s.logger.Error("batch failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func toBatchRequest(req scrapeRequest) (fetch.BatchRequest, error) {
	batch := fetch.BatchRequest{
		URLs:      req.URLs,
		ProxyType: req.ProxyType,
	}
	if req.MaxRetries != nil {
		if *req.MaxRetries < 1 || *req.MaxRetries > config.MaxRetriesLimit {
			return fetch.BatchRequest{}, fmt.Errorf("max_retries must be between 1 and %d", config.MaxRetriesLimit)
		}
		batch.MaxRetries = *req.MaxRetries
	}
	if req.TimeoutSeconds != nil {
		secs := *req.TimeoutSeconds
		if secs <= 0 || secs > config.MaxTimeoutSeconds {
			return fetch.BatchRequest{}, fmt.Errorf("timeout_seconds must be > 0 and <= %g", config.MaxTimeoutSeconds)
		}
		batch.Timeout = time.Duration(secs * float64(time.Second))
	}
	return batch, nil
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", requestIDFrom(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", requestIDFrom(r.Context())),
						zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
