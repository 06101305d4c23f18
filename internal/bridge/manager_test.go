package bridge

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mine-safety-bridge/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DatabasePath = filepath.Join(dir, "bridge.db")
	cfg.KeyPath = filepath.Join(dir, "bridge.key")
	cfg.TokenPath = filepath.Join(dir, "session.jwt")
	return cfg
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoadOrCreateKeyGeneratesAndReuses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "bridge.key")

	key, err := loadOrCreateKey(path)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	again, err := loadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestLoadOrCreateKeyRejectsWrongLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.key")
	require.NoError(t, os.WriteFile(path, []byte("too short"), 0600))

	_, err := loadOrCreateKey(path)
	assert.Error(t, err)
}

func TestNewWiresManager(t *testing.T) {
	cfg := testConfig(t)

	mgr, err := New(cfg, quietLogger(), Options{})
	require.NoError(t, err)
	defer mgr.Close()

	assert.NotNil(t, mgr.Alerts())
	assert.NotNil(t, mgr.Reconciler())
	assert.FileExists(t, cfg.KeyPath)
	assert.FileExists(t, cfg.DatabasePath)
}
