package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeLevels(t *testing.T) {
	tests := []struct {
		input string
		want  logrus.Level
	}{
		{input: "debug", want: logrus.DebugLevel},
		{input: "INFO", want: logrus.InfoLevel},
		{input: "warn", want: logrus.WarnLevel},
		{input: "error", want: logrus.ErrorLevel},
		{input: "nonsense", want: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			logger := Initialize(tt.input)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestInitializeEmitsJSON(t *testing.T) {
	logger := Initialize("info")

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.WithField("component", "alert").Info("Emergency triggered")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Emergency triggered", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "alert", entry["component"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestSetupFileLogging(t *testing.T) {
	logger := Initialize("info")
	logFile := filepath.Join(t.TempDir(), "logs", "bridge.log")

	require.NoError(t, SetupFileLogging(logger, logFile))
	logger.Info("written to file")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestSetupFileLoggingNoopWithoutPath(t *testing.T) {
	logger := Initialize("info")
	assert.NoError(t, SetupFileLogging(logger, ""))
}

func TestComponentAndTransportLoggers(t *testing.T) {
	logger := Initialize("info")

	entry := NewComponentLogger(logger, "sync")
	assert.Equal(t, "sync", entry.Data["component"])

	entry = NewTransportLogger(logger, "mesh")
	assert.Equal(t, "transport", entry.Data["component"])
	assert.Equal(t, "mesh", entry.Data["transport"])
}
