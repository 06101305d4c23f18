package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"mine-safety-bridge/internal/alert"
)

// Server is the local HTTP surface the UI trigger handlers call. It binds
// to loopback; emergencies from detection sources (manual SOS, fall
// detection, scream detection) arrive here.
type Server struct {
	alerts     *alert.Service
	reconciler *alert.Reconciler
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	hub        *OutcomeHub
}

// NewServer creates the local API server on the given port
func NewServer(alerts *alert.Service, reconciler *alert.Reconciler, port int, logger *logrus.Logger) *Server {
	s := &Server{
		alerts:     alerts,
		reconciler: reconciler,
		logger:     logger,
		router:     mux.NewRouter(),
		hub:        NewOutcomeHub(logger),
	}

	s.router.Use(s.requestLogging)
	s.setupRoutes()

	// Every completed trigger is pushed to connected UI clients
	alerts.AddOutcomeListener(s.hub.Notify)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/emergency", s.handleTrigger).Methods(http.MethodPost)
	api.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.hub.HandleUpgrade).Methods(http.MethodGet)
}

// Handler exposes the route table without binding a listener
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until it is shut down
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting local API server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("local API server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// requestLogging logs every API request with timing
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		}).Debug("API request")
	})
}
