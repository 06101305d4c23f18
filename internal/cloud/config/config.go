package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the alert-intake service configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Media    MediaConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// ConnectionString builds the lib/pq DSN
func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Database, d.Username, d.Password, d.SSLMode)
}

// RedisConfig holds Redis configuration for the dispatch queue
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	Database int
	PoolSize int
}

// RedisAddr returns the host:port address
func (r RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds Kafka fan-out configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// MediaConfig holds media upload storage configuration
type MediaConfig struct {
	StorageDir    string
	PublicBaseURL string
	MaxUploadMB   int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load loads configuration from the environment. A .env file is honored
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:         getEnvInt("INTAKE_PORT", 8080),
			ReadTimeout:  getEnvInt("INTAKE_READ_TIMEOUT", 30),
			WriteTimeout: getEnvInt("INTAKE_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvInt("INTAKE_IDLE_TIMEOUT", 120),
		},
		Database: DatabaseConfig{
			Host:         getEnv("INTAKE_DB_HOST", "localhost"),
			Port:         getEnvInt("INTAKE_DB_PORT", 5432),
			Database:     getEnv("INTAKE_DB_NAME", "safety_intake"),
			Username:     getEnv("INTAKE_DB_USER", "postgres"),
			Password:     getEnv("INTAKE_DB_PASSWORD", ""),
			SSLMode:      getEnv("INTAKE_DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("INTAKE_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("INTAKE_DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvInt("INTAKE_DB_MAX_LIFETIME", 300),
		},
		Redis: RedisConfig{
			Host:     getEnv("INTAKE_REDIS_HOST", "localhost"),
			Port:     getEnvInt("INTAKE_REDIS_PORT", 6379),
			Password: getEnv("INTAKE_REDIS_PASSWORD", ""),
			Database: getEnvInt("INTAKE_REDIS_DB", 0),
			PoolSize: getEnvInt("INTAKE_REDIS_POOL_SIZE", 10),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("INTAKE_KAFKA_BROKERS", "")),
			Topic:   getEnv("INTAKE_KAFKA_TOPIC", "emergency-alerts"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("INTAKE_JWT_SECRET", ""),
		},
		Media: MediaConfig{
			StorageDir:    getEnv("INTAKE_MEDIA_DIR", "./media"),
			PublicBaseURL: getEnv("INTAKE_MEDIA_BASE_URL", ""),
			MaxUploadMB:   getEnvInt("INTAKE_MEDIA_MAX_MB", 50),
		},
		Logging: LoggingConfig{
			Level: getEnv("INTAKE_LOG_LEVEL", "info"),
		},
	}

	config.Kafka.Enabled = len(config.Kafka.Brokers) > 0

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("INTAKE_JWT_SECRET is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("INTAKE_PORT must be a valid TCP port")
	}
	if c.Media.MaxUploadMB <= 0 {
		return fmt.Errorf("INTAKE_MEDIA_MAX_MB must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
