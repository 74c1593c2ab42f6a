package server

import (
	"net/http"
	"time"

	"vibecast/config"
	"vibecast/core/events"
	"vibecast/core/pipeline"
	"vibecast/metrics"
	"vibecast/repository"

	"github.com/gorilla/mux"
)

// APIHandler bundles the dependencies the admin API needs.
type APIHandler struct {
	cfg        *config.Config
	tracks     repository.TrackRepository
	dispatches repository.DispatchRepository
	orch       *pipeline.Orchestrator
	hub        *events.Hub
}

// NewAPIHandler creates the handler set.
func NewAPIHandler(
	cfg *config.Config,
	tracks repository.TrackRepository,
	dispatches repository.DispatchRepository,
	orch *pipeline.Orchestrator,
	hub *events.Hub,
) *APIHandler {
	return &APIHandler{
		cfg:        cfg,
		tracks:     tracks,
		dispatches: dispatches,
		orch:       orch,
		hub:        hub,
	}
}

// New builds the HTTP server with all routes registered.
func New(h *APIHandler) *http.Server {
	router := mux.NewRouter()

	// Unauthenticated surface.
	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/healthz", h.HealthHandler).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Everything under /api besides the above requires a valid token.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.AuthMiddleware)
	api.HandleFunc("/tracks", h.CreateTrackHandler).Methods(http.MethodPost)
	api.HandleFunc("/tracks", h.ListTracksHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id:[0-9]+}", h.GetTrackHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id:[0-9]+}/dispatches", h.ListDispatchesHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id:[0-9]+}/requeue", h.RequeueTrackHandler).Methods(http.MethodPost)
	api.HandleFunc("/dispatch/run", h.RunDispatchHandler).Methods(http.MethodPost)
	api.HandleFunc("/events/ws", h.EventsWSHandler).Methods(http.MethodGet)

	return &http.Server{
		Addr:         h.cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
