package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/fire-weather-etl/internal/domain"
	"github.com/couchcryptid/fire-weather-etl/internal/grid"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBytes caps the body of a synchronous index request.
const maxRequestBytes = 64 << 20

// Transformer computes the index datasets for one grid request.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error)
}

// Server exposes health, readiness, and metrics HTTP endpoints, plus an
// optional synchronous index endpoint.
type Server struct {
	httpServer  *http.Server
	transformer Transformer
	logger      *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics routes.
// When transformer is non-nil it also serves POST /indices.
func NewServer(addr string, ready sharedobs.ReadinessChecker, transformer Transformer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		transformer: transformer,
		logger:      logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if transformer != nil {
		mux.HandleFunc("POST /indices", s.handleIndices)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// indicesResponse lists the computed datasets in the same JSON form they take
// on the sink topic.
type indicesResponse struct {
	RequestID string            `json:"request_id"`
	Datasets  []json.RawMessage `json:"datasets"`
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	raw := domain.RawEvent{
		Key:       []byte(r.Header.Get("X-Request-ID")),
		Value:     body,
		Timestamp: time.Now(),
	}
	outs, err := s.transformer.Transform(r.Context(), raw)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("compute indices failed", "error", err)
		}
		sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	resp := indicesResponse{Datasets: make([]json.RawMessage, len(outs))}
	for i, out := range outs {
		resp.Datasets[i] = out.Value
		resp.RequestID = out.Headers["request_id"]
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

// statusFor maps a transform error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, grid.ErrShapeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
