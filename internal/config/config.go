package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const devSecretKey = "dev-secret-key-change-me"

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	SessionDuration time.Duration
	SecretKey       string
	EventRouting    string // parsed by the session service; empty means strict
	LogLevel        string
	SentryDSN       string
	OTLPEndpoint    string
	Environment     string
}

// fileConfig mirrors Config for the optional YAML file named by CONFIG_FILE.
type fileConfig struct {
	Port            string `yaml:"port"`
	DBType          string `yaml:"db_type"`
	DBPath          string `yaml:"db_path"`
	DatabaseURL     string `yaml:"database_url"`
	SessionDuration string `yaml:"session_duration"`
	SecretKey       string `yaml:"secret_key"`
	EventRouting    string `yaml:"event_routing"`
	LogLevel        string `yaml:"log_level"`
	SentryDSN       string `yaml:"sentry_dsn"`
	OTLPEndpoint    string `yaml:"otlp_endpoint"`
	Environment     string `yaml:"environment"`
}

// Load reads configuration from the environment. A .env file (or ENV_FILE)
// is loaded first without overriding variables already set, and values from
// CONFIG_FILE act as defaults beneath the environment.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	return fromEnv(fc)
}

func fromEnv(fc fileConfig) (*Config, error) {
	sessionDuration, err := time.ParseDuration(getEnv("SESSION_DURATION", or(fc.SessionDuration, "30m")))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_DURATION: %w", err)
	}
	if sessionDuration <= 0 {
		return nil, errors.New("SESSION_DURATION must be positive")
	}

	cfg := &Config{
		ServerPort:      getEnv("PORT", or(fc.Port, "8080")),
		DatabaseType:    strings.ToLower(getEnv("DB_TYPE", or(fc.DBType, "sqlite"))),
		DatabasePath:    getEnv("DB_PATH", or(fc.DBPath, "./lookaway.db")),
		DatabaseURL:     getEnv("DATABASE_URL", fc.DatabaseURL),
		SessionDuration: sessionDuration,
		SecretKey:       getEnv("SECRET_KEY", fc.SecretKey),
		EventRouting:    strings.ToLower(getEnv("LOOKAWAY_EVENT_ROUTING", fc.EventRouting)),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", or(fc.LogLevel, "info"))),
		SentryDSN:       getEnv("SENTRY_DSN", fc.SentryDSN),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", fc.OTLPEndpoint),
		Environment:     strings.ToLower(getEnv("GO_ENV", or(fc.Environment, "development"))),
	}

	if cfg.SecretKey == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("SECRET_KEY is required outside development")
		}
		cfg.SecretKey = devSecretKey
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs in a development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
