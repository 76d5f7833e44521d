// Package server exposes the webhook and admin HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interview-notifier/internal/appointments"
	"interview-notifier/internal/common/config"
	"interview-notifier/internal/common/logger"
)

// AppointmentService is the part of the decision engine the API exposes.
type AppointmentService interface {
	ProcessEvent(ctx context.Context, raw string) (*appointments.ProcessOutcome, error)
	SetInterviewURL(ctx context.Context, appointmentID, interviewURL, eventType string) (*appointments.Results, error)
	AppointmentsByType(ctx context.Context, typeIDs []string) ([]appointments.Appointment, error)
}

// BlockRunner runs the calendar blocking sweeps.
type BlockRunner interface {
	RunCreate(ctx context.Context) error
	RunClear(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	svc        AppointmentService
	blocker    BlockRunner
	log        logger.Logger
}

func New(cfg config.ServerConfig, svc AppointmentService, blocker BlockRunner, log logger.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		svc:     svc,
		blocker: blocker,
		log:     log,
	}
	s.routes()

	readTimeout := time.Duration(cfg.ReadTimeout) * time.Second
	if readTimeout == 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := time.Duration(cfg.WriteTimeout) * time.Second
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.correlationMiddleware)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/interview-event", s.handleInterviewEvent).Methods(http.MethodPost)
	v1.HandleFunc("/interview-url", s.handleSetInterviewURL).Methods(http.MethodPost)
	v1.HandleFunc("/appointments-by-type", s.handleAppointmentsByType).Methods(http.MethodPost)
	v1.HandleFunc("/calendar-blocks", s.handleCreateBlocks).Methods(http.MethodPost)
	v1.HandleFunc("/calendar-blocks", s.handleClearBlocks).Methods(http.MethodDelete)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info("http server listening", map[string]interface{}{
		"address": s.httpServer.Addr,
	})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
