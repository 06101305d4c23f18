package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mine-safety-bridge/internal/bridge"
	"mine-safety-bridge/internal/config"
	"mine-safety-bridge/internal/logging"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "mine-safety-bridge",
	Short: "Mine Safety Bridge - emergency alert delivery agent",
	Long: `A device-local agent that carries emergency alerts from detection
sources (manual SOS, fall detection, scream detection) to responders.
Alerts are numbered durably, routed through online, radio-bridge and
mesh transports in priority order, queued offline when no channel is
reachable, and reconciled once connectivity returns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}

// newManager loads configuration and wires a bridge manager
func newManager() (*bridge.Manager, *config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := logging.Initialize(cfg.LogLevel)
	if err := logging.SetupFileLogging(logger, cfg.LogFile); err != nil {
		return nil, nil, fmt.Errorf("failed to set up file logging: %w", err)
	}

	mgr, err := bridge.New(cfg, logger, bridge.Options{})
	if err != nil {
		return nil, nil, err
	}
	return mgr, cfg, nil
}

// runAgent runs the bridge until interrupted
func runAgent() error {
	mgr, _, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return mgr.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
