package bridge

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"mine-safety-bridge/internal/alert"
	"mine-safety-bridge/internal/api"
	"mine-safety-bridge/internal/config"
	"mine-safety-bridge/internal/connectivity"
	"mine-safety-bridge/internal/database"
	"mine-safety-bridge/internal/idgen"
	"mine-safety-bridge/internal/location"
	"mine-safety-bridge/internal/logging"
	"mine-safety-bridge/internal/media"
	"mine-safety-bridge/internal/queue"
	"mine-safety-bridge/internal/session"
	"mine-safety-bridge/internal/transport"
)

// Manager owns the wiring and lifecycle of the bridge components
type Manager struct {
	cfg        *config.Config
	logger     *logrus.Logger
	db         *database.DB
	alerts     *alert.Service
	reconciler *alert.Reconciler
	apiServer  *api.Server
}

// Options allows callers to inject device integrations. Both fields are
// optional: without them location degrades to the sentinel and mesh
// reports unavailable, like a handset with the native modules missing.
type Options struct {
	LocationProvider location.Provider
	MeshDevice       transport.MeshDevice
}

// New wires a bridge manager from configuration
func New(cfg *config.Config, logger *logrus.Logger, opts Options) (*Manager, error) {
	key, err := loadOrCreateKey(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load encryption key: %w", err)
	}

	db, err := database.NewDB(database.Config{
		DatabasePath:  cfg.DatabasePath,
		EncryptionKey: key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	sessions := session.NewFileProvider(cfg.TokenPath)

	allocator := idgen.NewAllocator(db, database.KeyEmergencyCounter, logging.NewComponentLogger(logger, "idgen"))
	resolver := location.NewResolver(opts.LocationProvider, cfg.LocationTimeoutDuration(), logging.NewComponentLogger(logger, "location"))
	oracle := connectivity.NewProbeOracle(cfg.ServerURL, logging.NewComponentLogger(logger, "connectivity"))
	offlineQueue := queue.NewSQLiteManager(db)
	uploader := media.NewUploader(cfg.ServerURL, cfg.MediaUploadTimeoutDuration(), logging.NewComponentLogger(logger, "media"))

	online := transport.NewOnlineTransport(cfg.ServerURL, sessions, cfg.SendTimeoutDuration(), slogAdapter(logger, "online"))

	var offlineChain []transport.Transport
	offlineChain = append(offlineChain, transport.NewRadioBridgeTransport(cfg.RadioBridgeAddr, cfg.SendTimeoutDuration(), slogAdapter(logger, "radio-bridge")))
	if cfg.MeshEnabled {
		offlineChain = append(offlineChain, transport.NewMeshTransport(opts.MeshDevice, sessions, cfg.SendTimeoutDuration(), slogAdapter(logger, "mesh")))
	}

	alerts := alert.NewService(
		sessions,
		resolver,
		allocator,
		oracle,
		online,
		offlineChain,
		offlineQueue,
		uploader,
		alert.Options{QueueDeliveredOffline: cfg.QueueDeliveredOffline},
		logging.NewComponentLogger(logger, "alert"),
	)

	reconciler := alert.NewReconciler(offlineQueue, online, logging.NewComponentLogger(logger, "sync"))
	apiServer := api.NewServer(alerts, reconciler, cfg.APIPort, logger)

	return &Manager{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		alerts:     alerts,
		reconciler: reconciler,
		apiServer:  apiServer,
	}, nil
}

// Alerts exposes the delivery orchestrator for CLI commands
func (m *Manager) Alerts() *alert.Service {
	return m.alerts
}

// Reconciler exposes the sync reconciler for CLI commands
func (m *Manager) Reconciler() *alert.Reconciler {
	return m.reconciler
}

// Run starts the local API server and the periodic reconciliation loop,
// blocking until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.apiServer.Start()
	}()

	go m.reconcileLoop(ctx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.apiServer.Shutdown(shutdownCtx); err != nil {
			m.logger.WithError(err).Error("API server shutdown failed")
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// reconcileLoop periodically drains the offline queue
func (m *Manager) reconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SyncIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.reconciler.Reconcile(ctx); err != nil {
				m.logger.WithError(err).Warn("Background reconciliation failed")
			}
		}
	}
}

// Close releases the device store
func (m *Manager) Close() error {
	return m.db.Close()
}

// slogAdapter builds the slog handle the transport adapters log through
func slogAdapter(logger *logrus.Logger, transportName string) *slog.Logger {
	level := slog.LevelInfo
	if logger.GetLevel() >= logrus.DebugLevel {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(logger.Out, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("component", "transport", "transport", transportName)
}

// loadOrCreateKey reads the payload encryption key, generating one on
// first run.
func loadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key at %s has wrong length %d", path, len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	key = make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to persist encryption key: %w", err)
	}

	return key, nil
}
