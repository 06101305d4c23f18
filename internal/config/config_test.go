package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.MeshEnabled)
	assert.True(t, cfg.QueueDeliveredOffline)
	assert.Empty(t, cfg.RadioBridgeAddr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing server URL",
			mutate:  func(c *Config) { c.ServerURL = "" },
			wantErr: "server_url",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.DatabasePath = "" },
			wantErr: "database_path",
		},
		{
			name:    "missing key path",
			mutate:  func(c *Config) { c.KeyPath = "" },
			wantErr: "key_path",
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.APIPort = 70000 },
			wantErr: "api_port",
		},
		{
			name:    "zero send timeout",
			mutate:  func(c *Config) { c.SendTimeout = 0 },
			wantErr: "send_timeout",
		},
		{
			name:    "zero media upload timeout",
			mutate:  func(c *Config) { c.MediaUploadTimeout = 0 },
			wantErr: "media_upload_timeout",
		},
		{
			name: "media timeout shorter than send timeout",
			mutate: func(c *Config) {
				c.SendTimeout = 30
				c.MediaUploadTimeout = 10
			},
			wantErr: "media_upload_timeout",
		},
		{
			name:    "zero location timeout",
			mutate:  func(c *Config) { c.LocationTimeout = 0 },
			wantErr: "location_timeout",
		},
		{
			name:    "zero sync interval",
			mutate:  func(c *Config) { c.SyncInterval = 0 },
			wantErr: "sync_interval",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server_url: http://127.0.0.1:9990
api_port: 9100
send_timeout: 20
mesh_enabled: false
radio_bridge_addr: 192.168.4.1:7777
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9990", cfg.ServerURL)
	assert.Equal(t, 9100, cfg.APIPort)
	assert.Equal(t, 20, cfg.SendTimeout)
	assert.False(t, cfg.MeshEnabled)
	assert.Equal(t, "192.168.4.1:7777", cfg.RadioBridgeAddr)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Unset keys keep their defaults
	assert.Equal(t, 60, cfg.MediaUploadTimeout)
	assert.True(t, cfg.QueueDeliveredOffline)
}

func TestLoadInvalidFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_port: 0\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("BRIDGE_LOG_LEVEL", "warn")
	t.Setenv("BRIDGE_SYNC_INTERVAL", "30")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 30, cfg.SyncInterval)
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendTimeout = 15
	cfg.MediaUploadTimeout = 60
	cfg.LocationTimeout = 5
	cfg.SyncInterval = 90

	assert.Equal(t, 15*time.Second, cfg.SendTimeoutDuration())
	assert.Equal(t, 60*time.Second, cfg.MediaUploadTimeoutDuration())
	assert.Equal(t, 5*time.Second, cfg.LocationTimeoutDuration())
	assert.Equal(t, 90*time.Second, cfg.SyncIntervalDuration())
}
