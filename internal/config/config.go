package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the bridge configuration
type Config struct {
	// Cloud intake configuration
	ServerURL string `mapstructure:"server_url"`

	// Session configuration
	TokenPath string `mapstructure:"token_path"`

	// Database configuration
	DatabasePath string `mapstructure:"database_path"`
	KeyPath      string `mapstructure:"key_path"`

	// Local API configuration
	APIPort int `mapstructure:"api_port"`

	// Transport timeouts (seconds)
	SendTimeout        int `mapstructure:"send_timeout"`
	MediaUploadTimeout int `mapstructure:"media_upload_timeout"`
	LocationTimeout    int `mapstructure:"location_timeout"`

	// Radio bridge / mesh configuration
	RadioBridgeAddr string `mapstructure:"radio_bridge_addr"`
	MeshEnabled     bool   `mapstructure:"mesh_enabled"`

	// Keep an offline audit entry even when a radio or mesh send
	// reports success. Radio and mesh delivery cannot be confirmed
	// end to end, so the entry doubles as a resync record.
	QueueDeliveredOffline bool `mapstructure:"queue_delivered_offline"`

	// Sync configuration
	SyncInterval int `mapstructure:"sync_interval"` // seconds

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:             "https://api.yourdomain.com",
		TokenPath:             "./session.jwt",
		DatabasePath:          "./bridge.db",
		KeyPath:               "./bridge.key",
		APIPort:               8090,
		SendTimeout:           15,
		MediaUploadTimeout:    60,
		LocationTimeout:       5,
		RadioBridgeAddr:       "",
		MeshEnabled:           true,
		QueueDeliveredOffline: true,
		SyncInterval:          60,
		LogLevel:              "info",
		LogFile:               "",
	}
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/mine-safety-bridge")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mine-safety-bridge"))
		}
	}

	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server_url", cfg.ServerURL)
	v.SetDefault("token_path", cfg.TokenPath)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("key_path", cfg.KeyPath)
	v.SetDefault("api_port", cfg.APIPort)
	v.SetDefault("send_timeout", cfg.SendTimeout)
	v.SetDefault("media_upload_timeout", cfg.MediaUploadTimeout)
	v.SetDefault("location_timeout", cfg.LocationTimeout)
	v.SetDefault("radio_bridge_addr", cfg.RadioBridgeAddr)
	v.SetDefault("mesh_enabled", cfg.MeshEnabled)
	v.SetDefault("queue_delivered_offline", cfg.QueueDeliveredOffline)
	v.SetDefault("sync_interval", cfg.SyncInterval)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}

	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}

	if c.KeyPath == "" {
		return fmt.Errorf("key_path is required")
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("api_port must be a valid TCP port")
	}

	if c.SendTimeout <= 0 {
		return fmt.Errorf("send_timeout must be positive")
	}

	if c.MediaUploadTimeout <= 0 {
		return fmt.Errorf("media_upload_timeout must be positive")
	}

	if c.MediaUploadTimeout < c.SendTimeout {
		return fmt.Errorf("media_upload_timeout must not be shorter than send_timeout")
	}

	if c.LocationTimeout <= 0 {
		return fmt.Errorf("location_timeout must be positive")
	}

	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	return nil
}

// SendTimeoutDuration returns the per-transport send timeout
func (c *Config) SendTimeoutDuration() time.Duration {
	return time.Duration(c.SendTimeout) * time.Second
}

// MediaUploadTimeoutDuration returns the media upload timeout
func (c *Config) MediaUploadTimeoutDuration() time.Duration {
	return time.Duration(c.MediaUploadTimeout) * time.Second
}

// LocationTimeoutDuration returns the location resolution timeout
func (c *Config) LocationTimeoutDuration() time.Duration {
	return time.Duration(c.LocationTimeout) * time.Second
}

// SyncIntervalDuration returns the background reconciliation interval
func (c *Config) SyncIntervalDuration() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}
