package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

// RatingsSource exposes the ranking produced by the last completed run.
type RatingsSource interface {
	sharedobs.ReadinessChecker
	LastRatings() []domain.CityRating
}

// Server exposes health, readiness, metrics and ratings HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and /ratings routes.
func NewServer(addr string, source RatingsSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(source))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ratings", handleRatings(source))

	return s
}

type ratingsResponse struct {
	Cities []domain.CityRating `json:"cities"`
}

func handleRatings(source RatingsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := source.CheckReadiness(r.Context()); err != nil {
			sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		ratings := source.LastRatings()
		if ratings == nil {
			ratings = []domain.CityRating{}
		}
		sharedobs.WriteJSON(w, http.StatusOK, ratingsResponse{Cities: ratings})
	}
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
