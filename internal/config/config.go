package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// app config, read from the environment
type Config struct {
	Provider       string
	Port           string
	AllowedOrigins []string
	JWTSecret      string

	// DatabaseDSN selects sqlite when set; otherwise Postgres is used.
	DatabaseDSN string
	Postgres    PostgresConfig

	RedisAddr     string
	RedisPassword string
	SnapshotTTL   time.Duration

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// SandboxDriver is http, docker or none.
	SandboxDriver   string
	SandboxURL      string
	SandboxWallTime time.Duration

	SweepSchedule    string
	SessionIdleTTL   time.Duration
	MaxDocumentChars int

	// InterviewConfigFile is an optional YAML file with interview tunables.
	InterviewConfigFile string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DB, p.Port, p.SSLMode)
}

// loads configuration from environment variables, after an optional .env file
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{
		Provider:       getEnvOrDefault("AI_PROVIDER", "gemini"),
		Port:           getEnvOrDefault("PORT", "8080"),
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:5173")),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),
		Postgres: PostgresConfig{
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
			User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			DB:       getEnvOrDefault("POSTGRES_DB", "postgres"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		},
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		SnapshotTTL:         getEnvDuration("SNAPSHOT_TTL", 2*time.Hour),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDatabase:       getEnvOrDefault("MONGO_DB", "peerprep"),
		MongoCollection:     getEnvOrDefault("MONGO_DOCUMENTS_COLLECTION", "interview_documents"),
		SandboxDriver:       strings.ToLower(getEnvOrDefault("SANDBOX_DRIVER", "http")),
		SandboxURL:          getEnvOrDefault("SANDBOX_URL", "http://localhost:8090"),
		SandboxWallTime:     getEnvDuration("SANDBOX_WALL_TIME", 10*time.Second),
		SweepSchedule:       getEnvOrDefault("SESSION_SWEEP_SCHEDULE", "@every 1m"),
		SessionIdleTTL:      getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		MaxDocumentChars:    getEnvInt("MAX_DOCUMENT_CHARS", 30000),
		InterviewConfigFile: os.Getenv("INTERVIEW_CONFIG_FILE"),
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	if config.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch config.SandboxDriver {
	case "http", "docker", "none":
	default:
		return errors.New("unsupported SANDBOX_DRIVER: " + config.SandboxDriver + ". Use http, docker or none")
	}
	if config.SessionIdleTTL <= 0 {
		return errors.New("SESSION_IDLE_TTL must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
