package intake

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"mine-safety-bridge/internal/cloud/config"
	"mine-safety-bridge/internal/cloud/database"
	"mine-safety-bridge/internal/cloud/queue"
)

// Server is the alert-intake HTTP service the bridges submit to
type Server struct {
	cfg        *config.Config
	db         *database.Connection
	dispatch   *queue.RedisQueue
	producer   *queue.Producer
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
}

// NewServer wires the intake service. producer may be nil when Kafka
// fan-out is disabled.
func NewServer(cfg *config.Config, db *database.Connection, dispatch *queue.RedisQueue, producer *queue.Producer, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		db:       db,
		dispatch: dispatch,
		producer: producer,
		logger:   logger,
		router:   mux.NewRouter(),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(s.requireAuth)
	v1.HandleFunc("/emergencies", s.handleCreateEmergency).Methods(http.MethodPost)
	v1.HandleFunc("/emergencies", s.handleListEmergencies).Methods(http.MethodGet)
	v1.HandleFunc("/media", s.handleUploadMedia).Methods(http.MethodPost)
}

// Handler exposes the route table without binding a listener
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until shut down
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting alert-intake server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("intake server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Health(); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
