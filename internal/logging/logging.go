package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Initialize sets up structured logging with the specified level
func Initialize(logLevel string) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = logrus.InfoLevel
		logger.WithError(err).Warn("Invalid log level, defaulting to info")
	}
	logger.SetLevel(level)

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	logger.SetOutput(os.Stdout)

	return logger
}

// SetupFileLogging configures logging to write to a file in addition to stdout
func SetupFileLogging(logger *logrus.Logger, logFile string) error {
	if logFile == "" {
		return nil
	}

	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	logger.SetOutput(multiWriter)

	logger.WithField("log_file", logFile).Info("File logging enabled")

	return nil
}

// NewComponentLogger creates a logger scoped to one pipeline component
func NewComponentLogger(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}

// NewTransportLogger creates a logger specifically for transport adapters
func NewTransportLogger(logger *logrus.Logger, transportName string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"component": "transport",
		"transport": transportName,
	})
}
