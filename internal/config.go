package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Draft backends.
const (
	DraftBackendMemory   = "memory"
	DraftBackendSQLite   = "sqlite"
	DraftBackendRedis    = "redis"
	DraftBackendPostgres = "postgres"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string
	LogFile  string // optional; logs are also written here

	// Property management API
	Apex27BaseURL  string
	Apex27APIKey   string
	Apex27ViaProxy bool // send requests through the credential proxy
	GatewayTimeout time.Duration

	// Draft persistence
	DraftBackend    string
	DraftSQLitePath string
	DraftTimeout    time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	DatabaseUrl     string // postgres backend only

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string
	LocalStorageURL  string

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	R2Endpoint        string // S3-compatible endpoint override

	ReportURLExpiry time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),
		LogFile:  getEnv("LOG_FILE", ""),

		Apex27BaseURL:  getEnv("APEX27_BASE_URL", "https://api.apex27.co.uk"),
		Apex27APIKey:   getEnv("APEX27_API_KEY", ""),
		Apex27ViaProxy: getEnvBool("APEX27_VIA_PROXY", false),
		GatewayTimeout: getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second),

		DraftBackend:    getEnv("DRAFT_BACKEND", DraftBackendSQLite),
		DraftSQLitePath: getEnv("DRAFT_SQLITE_PATH", "./walkthrough.db"),
		DraftTimeout:    getEnvDuration("DRAFT_TIMEOUT", 2*time.Second),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		DatabaseUrl:     os.Getenv("DATABASE_URL"),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		R2Endpoint:        getEnv("R2_ENDPOINT", ""),

		ReportURLExpiry: getEnvDuration("REPORT_URL_EXPIRY", time.Hour),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	if cfg.Apex27APIKey == "" && !cfg.Apex27ViaProxy {
		return nil, fmt.Errorf("APEX27_API_KEY is required unless APEX27_VIA_PROXY is set")
	}

	// Validate draft backend
	switch cfg.DraftBackend {
	case DraftBackendMemory, DraftBackendSQLite, DraftBackendRedis:
	case DraftBackendPostgres:
		if cfg.DatabaseUrl == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DRAFT_BACKEND is 'postgres'")
		}
	default:
		return nil, fmt.Errorf("DRAFT_BACKEND must be one of 'memory', 'sqlite', 'redis' or 'postgres', got: %s", cfg.DraftBackend)
	}

	// Validate storage configuration
	if cfg.StorageProvider == "r2" {
		if cfg.R2AccountID == "" && cfg.R2Endpoint == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if cfg.StorageProvider != "local" {
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	return cfg, nil
}

// ProxyConfig configures the credential-injecting proxy.
type ProxyConfig struct {
	Env        string
	Port       int
	LogLevel   string
	LogFile    string
	Target     string
	APIKey     string
	Base64Body bool // encode response bodies as base64
}

func NewProxyConfig() (*ProxyConfig, error) {
	_ = godotenv.Load()

	cfg := &ProxyConfig{
		Env:        getEnv("ENV", "development"),
		Port:       getEnvInt("PROXY_PORT", 8888),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", ""),
		Target:     getEnv("PROXY_TARGET", "https://api.apex27.co.uk"),
		APIKey:     getEnv("APEX27_API_KEY", ""),
		Base64Body: getEnvBool("PROXY_BASE64_BODY", false),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APEX27_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
