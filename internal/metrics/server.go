package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProgressFunc returns the current harvest progress snapshot.
type ProgressFunc func() any

// Server serves metrics and a progress snapshot over HTTP while a long
// harvest runs.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the status server. progress may be nil, in which case
// the /progress endpoint returns an empty object.
func NewServer(m *Metrics, addr string, progress ProgressFunc, logger *slog.Logger) *Server {
	if addr == "" {
		addr = ":9090"
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/progress", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var snapshot any = struct{}{}
		if progress != nil {
			snapshot = progress()
		}
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			logger.Warn("failed to encode progress", "error", err)
		}
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("status server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server failed", "error", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
