// Package http serves the advisory JSON API alongside the health, readiness
// and metrics endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/alerting"
	"github.com/couchcryptid/crop-advisory-service/internal/cultivation"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionHeader carries the caller's cultivation session id.
const SessionHeader = "X-Session-ID"

// AlertSource exposes the most recent risk sweep.
type AlertSource interface {
	Latest() (alerting.Summary, bool)
}

// Deps are the collaborators the API handlers read from. Alerts is optional.
type Deps struct {
	Cultivation *cultivation.Manager
	Calendar    domain.Calendar
	Risks       *domain.RiskModel
	Advisor     *domain.Advisor
	Weather     domain.WeatherProvider
	Knowledge   domain.KnowledgeSource
	Alerts      AlertSource
	Region      string
}

// Server exposes the advisory API plus /healthz, /readyz and /metrics.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API and operational routes.
func NewServer(addr string, deps Deps, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/crops", s.handleCrops)
	mux.HandleFunc("GET /api/crops/{crop}/stage", s.handleStage)
	mux.HandleFunc("GET /api/crops/{crop}/risks", s.handleRisks)
	mux.HandleFunc("GET /api/crops/{crop}/advisory", s.handleAdvisory)
	mux.HandleFunc("GET /api/weather", s.handleWeather)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)

	mux.HandleFunc("GET /api/cultivation/state", s.handleState)
	mux.HandleFunc("POST /api/cultivation/start", s.handleStart)
	mux.HandleFunc("POST /api/cultivation/update", s.handleUpdate)
	mux.HandleFunc("GET /api/cultivation/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /api/cultivation/detect", s.handleDetect)

	mux.HandleFunc("GET /api/knowledge/{crop}/lifecycle", s.handleLifecycle)

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
