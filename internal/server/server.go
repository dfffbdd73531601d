// Package server provides the HTTP server and routing for Modelgate.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/config"
	"github.com/aristath/modelgate/internal/database"
	"github.com/aristath/modelgate/internal/events"
	"github.com/aristath/modelgate/internal/metrics"
	audithandlers "github.com/aristath/modelgate/internal/modules/audit/handlers"
	gatehandlers "github.com/aristath/modelgate/internal/modules/gate/handlers"
	manifesthandlers "github.com/aristath/modelgate/internal/modules/manifest/handlers"
	observationhandlers "github.com/aristath/modelgate/internal/modules/observation/handlers"
	registryhandlers "github.com/aristath/modelgate/internal/modules/registry/handlers"
	"github.com/aristath/modelgate/internal/modules/rollout"
	rollouthandlers "github.com/aristath/modelgate/internal/modules/rollout/handlers"
	"github.com/aristath/modelgate/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log           zerolog.Logger
	RegistryDB    *database.DB
	RolloutDB     *database.DB
	ObservationDB *database.DB
	AuditDB       *database.DB
	CacheDB       *database.DB
	Config        *config.Config
	Port          int
	DevMode       bool
	EventBus      *events.Bus

	// Module handlers, wired in main
	GateHandler        *gatehandlers.Handler
	RegistryHandler    *registryhandlers.Handler
	RolloutHandler     *rollouthandlers.Handler
	AuditHandler       *audithandlers.Handler
	ObservationHandler *observationhandlers.Handler
	ManifestHandler    *manifesthandlers.Handler

	// Rollout service for the websocket stream's initial snapshot
	RolloutService *rollout.Service

	// Prometheus exporter backing /metrics (optional)
	MetricsExporter *metrics.Exporter
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	eventBus       *events.Bus
	systemHandlers *SystemHandlers

	gateHandler        *gatehandlers.Handler
	registryHandler    *registryhandlers.Handler
	rolloutHandler     *rollouthandlers.Handler
	auditHandler       *audithandlers.Handler
	observationHandler *observationhandlers.Handler
	manifestHandler    *manifesthandlers.Handler
	rolloutService     *rollout.Service
	metricsExporter    *metrics.Exporter
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		[]*database.DB{cfg.RegistryDB, cfg.RolloutDB, cfg.ObservationDB, cfg.AuditDB, cfg.CacheDB},
	)

	s := &Server{
		router:             chi.NewRouter(),
		log:                cfg.Log.With().Str("component", "server").Logger(),
		cfg:                cfg.Config,
		eventBus:           cfg.EventBus,
		systemHandlers:     systemHandlers,
		gateHandler:        cfg.GateHandler,
		registryHandler:    cfg.RegistryHandler,
		rolloutHandler:     cfg.RolloutHandler,
		auditHandler:       cfg.AuditHandler,
		observationHandler: cfg.ObservationHandler,
		manifestHandler:    cfg.ManifestHandler,
		rolloutService:     cfg.RolloutService,
		metricsExporter:    cfg.MetricsExporter,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetJobs registers job instances for manual triggering via API
func (s *Server) SetJobs(
	trackerSync scheduler.Job,
	rampEvaluation scheduler.Job,
	cacheCleanup scheduler.Job,
	outcomeRetention scheduler.Job,
	backup scheduler.Job,
) {
	s.systemHandlers.SetJobs(trackerSync, rampEvaluation, cacheCleanup, outcomeRetention, backup)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// Prometheus scrape endpoint, outside /api like /health
	if s.metricsExporter != nil {
		s.router.Handle("/metrics", s.metricsExporter.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		// Streaming endpoints first; they hold connections open and must
		// not go through the response compressor or a request timeout
		eventsStreamHandler := NewEventsStreamHandler(s.eventBus, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)

		rolloutStreamHandler := NewRolloutStreamHandler(s.eventBus, s.rolloutService, s.log)
		r.Get("/rollout/stream", rolloutStreamHandler.ServeHTTP)

		// System monitoring and job triggers
		systemHandlers := s.systemHandlers
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", systemHandlers.HandleDatabaseStats)
			r.Get("/disk", systemHandlers.HandleDiskUsage)
			r.Get("/jobs", systemHandlers.HandleJobsStatus)

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/tracker-sync", systemHandlers.HandleTriggerTrackerSync)
				r.Post("/ramp-evaluation", systemHandlers.HandleTriggerRampEvaluation)
				r.Post("/cache-cleanup", systemHandlers.HandleTriggerCacheCleanup)
				r.Post("/outcome-retention", systemHandlers.HandleTriggerOutcomeRetention)
				r.Post("/backup", systemHandlers.HandleTriggerBackup)
			})
		})

		// Module routes
		s.gateHandler.RegisterRoutes(r)
		s.registryHandler.RegisterRoutes(r)
		s.rolloutHandler.RegisterRoutes(r)
		s.auditHandler.RegisterRoutes(r)
		s.observationHandler.RegisterRoutes(r)
		s.manifestHandler.RegisterRoutes(r)
	})
}

// handleHealth is a minimal liveness endpoint for probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
