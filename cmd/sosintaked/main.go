package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mine-safety-bridge/internal/cloud/config"
	"mine-safety-bridge/internal/cloud/database"
	"mine-safety-bridge/internal/cloud/intake"
	"mine-safety-bridge/internal/cloud/queue"
	"mine-safety-bridge/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load intake configuration: %w", err)
	}

	logger := logging.Initialize(cfg.Logging.Level)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to intake database: %w", err)
	}
	defer db.Close()

	dispatch, err := queue.NewRedisQueue(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to dispatch queue: %w", err)
	}
	defer dispatch.Close()

	var producer *queue.Producer
	if cfg.Kafka.Enabled {
		producer = queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		logger.WithField("topic", cfg.Kafka.Topic).Info("Kafka fan-out enabled")
	}

	server := intake.NewServer(cfg, db, dispatch, producer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
