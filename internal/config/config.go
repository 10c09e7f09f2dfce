package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configFileEnv = "INVOICEHUB_CONFIG_FILE"

type Config struct {
	ServiceName string
	LogLevel    string
	LogFormat   string

	BackendURL                  string
	BackendTimeoutSeconds       int
	BackendUploadTimeoutSeconds int
	BackendRetryMaxAttempts     int
	BackendBreakerEnabled       bool
	BackendValidateContract     bool

	SessionDriver     string
	SessionPath       string
	SessionDSN        string
	SessionRedisURL   string
	SessionNamespace  string
	SessionTTLSeconds int

	StorageDriver  string
	StoragePath    string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIOPrefix    string

	NATSURL     string
	NATSSubject string

	StatsPollIntervalMS int
	TaskPollIntervalMS  int

	APIPort                string
	APIKey                 string
	APIRateLimitRPS        float64
	APIRateLimitBurst      int
	APIMaxInFlight         int
	APIBackpressureWaitMS  int
	APIMaxUploadBytes      int64
	APIShutdownTimeoutSecs int

	OTELEndpoint string
	OTELInsecure bool
}

// Load resolves every key from the environment, then the YAML overlay named by
// INVOICEHUB_CONFIG_FILE, then the built-in default. A .env file in the working
// directory is loaded first and never overrides variables already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	src := source{}
	if path := strings.TrimSpace(os.Getenv(configFileEnv)); path != "" {
		overlay, err := readOverlay(path)
		if err != nil {
			return Config{}, err
		}
		src.file = overlay
	}

	cfg := Config{
		ServiceName: src.str("SERVICE_NAME", "invoicehub-agent"),
		LogLevel:    src.str("LOG_LEVEL", "info"),
		LogFormat:   src.str("LOG_FORMAT", "json"),

		BackendURL:                  src.str("BACKEND_URL", "http://localhost:8000"),
		BackendTimeoutSeconds:       src.integer("BACKEND_TIMEOUT_SECONDS", 30),
		BackendUploadTimeoutSeconds: src.integer("BACKEND_UPLOAD_TIMEOUT_SECONDS", 300),
		BackendRetryMaxAttempts:     src.integer("BACKEND_RETRY_MAX_ATTEMPTS", 3),
		BackendBreakerEnabled:       src.flag("BACKEND_BREAKER_ENABLED", true),
		BackendValidateContract:     src.flag("BACKEND_VALIDATE_CONTRACT", true),

		SessionDriver:     src.str("SESSION_DRIVER", "file"),
		SessionPath:       src.str("SESSION_PATH", "./data/session.json"),
		SessionDSN:        src.str("SESSION_DSN", "file:./data/session.db"),
		SessionRedisURL:   src.str("SESSION_REDIS_URL", "redis://localhost:6379/0"),
		SessionNamespace:  src.str("SESSION_NAMESPACE", "default"),
		SessionTTLSeconds: src.integer("SESSION_TTL_SECONDS", 0),

		StorageDriver:  src.str("STORAGE_DRIVER", "local"),
		StoragePath:    src.str("STORAGE_PATH", "./data/storage"),
		MinIOEndpoint:  src.str("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: src.str("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: src.str("MINIO_SECRET_KEY", ""),
		MinIOBucket:    src.str("MINIO_BUCKET", "purchase-orders"),
		MinIOUseSSL:    src.flag("MINIO_USE_SSL", false),
		MinIOPrefix:    src.str("MINIO_PREFIX", "po"),

		NATSURL:     src.str("NATS_URL", ""),
		NATSSubject: src.str("NATS_SUBJECT", "invoicehub.status"),

		StatsPollIntervalMS: src.integer("STATS_POLL_INTERVAL_MS", 10000),
		TaskPollIntervalMS:  src.integer("TASK_POLL_INTERVAL_MS", 2000),

		APIPort:                src.str("API_PORT", "8080"),
		APIKey:                 src.str("API_KEY", ""),
		APIRateLimitRPS:        src.number("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst:      src.integer("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:         src.integer("API_MAX_IN_FLIGHT", 32),
		APIBackpressureWaitMS:  src.integer("API_BACKPRESSURE_WAIT_MS", 250),
		APIMaxUploadBytes:      int64(src.integer("API_MAX_UPLOAD_MB", 64)) << 20,
		APIShutdownTimeoutSecs: src.integer("API_SHUTDOWN_TIMEOUT_SECONDS", 10),

		OTELEndpoint: src.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure: src.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.SessionDriver {
	case "file", "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("config: unknown SESSION_DRIVER %q", c.SessionDriver)
	}
	switch c.StorageDriver {
	case "local", "minio":
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if strings.TrimSpace(c.BackendURL) == "" {
		return fmt.Errorf("config: BACKEND_URL is required")
	}
	return nil
}

// readOverlay reads a flat YAML mapping keyed by the environment variable names.
func readOverlay(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(doc))
	for key, value := range doc {
		if value == nil {
			continue
		}
		switch value.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("config file %s: key %s must be a scalar", path, key)
		}
		out[strings.ToUpper(key)] = fmt.Sprint(value)
	}
	return out, nil
}

type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) str(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) integer(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) number(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) flag(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
