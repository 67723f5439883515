package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Vector backends.
const (
	BackendSQLite   = "sqlite"
	BackendUpstash  = "upstash"
	BackendPGVector = "pgvector"
)

type Config struct {
	GeminiAPIKey string `yaml:"gemini_api_key"`
	DatabaseURL  string `yaml:"database_url"`
	HTTPPort     string `yaml:"http_port"`
	LogLevel     string `yaml:"log_level"`
	JWTSecret    string `yaml:"jwt_secret"`

	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`

	VectorBackend       string `yaml:"vector_backend"`
	UpstashURL          string `yaml:"upstash_vector_rest_url"`
	UpstashToken        string `yaml:"upstash_vector_rest_token"`
	PostgresURL         string `yaml:"postgres_url"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`

	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

var AppConfig Config

// Default returns the configuration used when neither a file nor the
// environment sets a value.
func Default() *Config {
	return &Config{
		DatabaseURL:         "ragapi.db",
		HTTPPort:            "8080",
		LogLevel:            "INFO",
		ChatModel:           "gemini-1.5-flash-latest",
		EmbeddingModel:      "text-embedding-004",
		VectorBackend:       BackendSQLite,
		EmbeddingDimensions: 768,
		RateLimitRequests:   5,
		RateLimitWindow:     10 * time.Second,
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// path is non-empty) and environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSigningSecret resolves only JWT_SECRET, from .env, the YAML file and
// the environment. Minting dev tokens needs no model or backend settings.
func LoadSigningSecret(path string) (string, error) {
	_ = godotenv.Load()
	if path == "" {
		path = getEnv("CONFIG_FILE", "")
	}
	cfg, err := read(path)
	if err != nil {
		return "", err
	}
	if cfg.JWTSecret == "" {
		return "", errors.New("JWT_SECRET is required")
	}
	return cfg.JWTSecret, nil
}

func read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads .env, then the configuration, into AppConfig. An empty
// path falls back to CONFIG_FILE. Invalid configuration is fatal.
func LoadConfig(path string) {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	if path == "" {
		path = getEnv("CONFIG_FILE", "")
	}
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	AppConfig = *cfg
}

func applyEnv(cfg *Config) error {
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.ChatModel = getEnv("CHAT_MODEL", cfg.ChatModel)
	cfg.EmbeddingModel = getEnv("EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.VectorBackend = strings.ToLower(getEnv("VECTOR_BACKEND", cfg.VectorBackend))
	cfg.UpstashURL = getEnv("UPSTASH_VECTOR_REST_URL", cfg.UpstashURL)
	cfg.UpstashToken = getEnv("UPSTASH_VECTOR_REST_TOKEN", cfg.UpstashToken)
	cfg.PostgresURL = getEnv("POSTGRES_URL", cfg.PostgresURL)
	cfg.EmbeddingDimensions = getEnvAsInt("EMBEDDING_DIMENSIONS", cfg.EmbeddingDimensions)
	cfg.RateLimitRequests = getEnvAsInt("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)

	if v := getEnv("RATE_LIMIT_WINDOW", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_WINDOW: %w", err)
		}
		cfg.RateLimitWindow = d
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch c.VectorBackend {
	case BackendSQLite:
	case BackendUpstash:
		if c.UpstashURL == "" || c.UpstashToken == "" {
			errs = append(errs, errors.New("UPSTASH_VECTOR_REST_URL and UPSTASH_VECTOR_REST_TOKEN are required for the upstash backend"))
		}
	case BackendPGVector:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the pgvector backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown VECTOR_BACKEND %q", c.VectorBackend))
	}

	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate limit requests and window must be positive"))
	}
	return errors.Join(errs...)
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "DEBUG")
}

// Debugf logs only when AppConfig has LOG_LEVEL=DEBUG.
func Debugf(format string, args ...any) {
	if AppConfig.Debug() {
		log.Output(2, "DEBUG: "+fmt.Sprintf(format, args...))
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
