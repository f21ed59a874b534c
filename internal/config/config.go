package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment and file.
// Priority: Env vars → config.toml → defaults
type Config struct {
	// ServerPort is the address to bind the server to (e.g., ":8080")
	ServerPort string

	// DataDir holds the config file, the SQLite database and stored images
	DataDir string

	// ImagesDir is where url mode writes image files
	ImagesDir string

	// PublicBaseURL overrides the scheme and host derived from request headers
	PublicBaseURL string

	// DeliveryMode is one of raw, url, key, datauri
	DeliveryMode string

	// StorageBackend is one of sqlite, postgres, mongo
	StorageBackend string

	// DatabaseURL is the SQL DSN or Mongo URI; empty means the SQLite file in DataDir
	DatabaseURL   string
	MongoDatabase string

	ProviderEndpoint           string
	ProviderAuth               string
	ProviderTimeout            time.Duration
	ProviderResponseModalities []string
	ProviderMaxResponseBytes   int64

	ReferenceTimeout  time.Duration
	ReferenceMaxBytes int64

	// ExtractMinRun is the fallback extraction threshold
	ExtractMinRun int

	// RequestLog enables per-request log records
	RequestLog bool

	// AdminToken protects /api/admin; empty leaves it open
	AdminToken string

	LogLevel  string
	LogFormat string

	// CacheMaxBytes bounds the keyed image cache; 0 disables it
	CacheMaxBytes int64

	// errs collects values that failed to parse
	errs []error
}

// Defaults
const (
	DefaultServerPort        = ":8080"
	DefaultDeliveryMode      = "url"
	DefaultStorageBackend    = "sqlite"
	DefaultMongoDatabase     = "drawgate"
	DefaultProviderEndpoint  = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash-exp:generateContent"
	DefaultProviderAuth      = "header"
	DefaultProviderTimeout   = 60 * time.Second
	DefaultReferenceTimeout  = 20 * time.Second
	DefaultReferenceMaxBytes = 20 << 20
	DefaultMaxResponseBytes  = 64 << 20
	DefaultExtractMinRun     = 200
	DefaultCacheMaxBytes     = 64 << 20
)

// LoadDotEnv loads a .env file into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Environment variables override file config values. Malformed values are
// reported by Validate.
func Load() *Config {
	cfg := &Config{}

	fileConfig, err := LoadFile()
	if err != nil {
		cfg.errs = append(cfg.errs, fmt.Errorf("config file: %w", err))
		fileConfig = &FileConfig{}
	}

	cfg.ServerPort = getEnvOrFile("SERVER_PORT", fileConfig.ServerPort, DefaultServerPort)
	cfg.DataDir = DataDir()
	cfg.ImagesDir = getEnvOrFile("IMAGES_DIR", fileConfig.ImagesDir, ImagesDir())
	cfg.PublicBaseURL = getEnvOrFile("PUBLIC_BASE_URL", fileConfig.PublicBaseURL, "")
	cfg.DeliveryMode = strings.ToLower(getEnvOrFile("DELIVERY_MODE", fileConfig.DeliveryMode, DefaultDeliveryMode))
	cfg.StorageBackend = strings.ToLower(getEnvOrFile("STORAGE_BACKEND", fileConfig.StorageBackend, DefaultStorageBackend))
	cfg.DatabaseURL = getEnvOrFile("DATABASE_URL", fileConfig.DatabaseURL, "")
	cfg.MongoDatabase = getEnvOrFile("MONGO_DATABASE", fileConfig.MongoDatabase, DefaultMongoDatabase)

	cfg.ProviderEndpoint = getEnvOrFile("PROVIDER_ENDPOINT", fileConfig.ProviderEndpoint, DefaultProviderEndpoint)
	cfg.ProviderAuth = strings.ToLower(getEnvOrFile("PROVIDER_AUTH", fileConfig.ProviderAuth, DefaultProviderAuth))
	cfg.ProviderTimeout = cfg.getEnvDurationOrFile("PROVIDER_TIMEOUT", fileConfig.ProviderTimeout, DefaultProviderTimeout)
	cfg.ProviderResponseModalities = splitList(getEnvOrFile("PROVIDER_RESPONSE_MODALITIES", strings.Join(fileConfig.ProviderResponseModalities, ","), ""))
	cfg.ProviderMaxResponseBytes = cfg.getEnvInt64OrFile("PROVIDER_MAX_RESPONSE_BYTES", fileConfig.ProviderMaxResponseBytes, DefaultMaxResponseBytes)

	cfg.ReferenceTimeout = cfg.getEnvDurationOrFile("REFERENCE_TIMEOUT", fileConfig.ReferenceTimeout, DefaultReferenceTimeout)
	cfg.ReferenceMaxBytes = cfg.getEnvInt64OrFile("REFERENCE_MAX_BYTES", fileConfig.ReferenceMaxBytes, DefaultReferenceMaxBytes)

	cfg.ExtractMinRun = int(cfg.getEnvInt64OrFile("EXTRACT_MIN_RUN", fileConfig.ExtractMinRun, DefaultExtractMinRun))
	cfg.RequestLog = getEnvBoolOrFile("REQUEST_LOG", fileConfig.RequestLog, true)
	cfg.AdminToken = getEnvOrFile("ADMIN_TOKEN", fileConfig.AdminToken, "")
	cfg.LogLevel = strings.ToLower(getEnvOrFile("LOG_LEVEL", fileConfig.LogLevel, "info"))
	cfg.LogFormat = strings.ToLower(getEnvOrFile("LOG_FORMAT", fileConfig.LogFormat, "text"))
	cfg.CacheMaxBytes = cfg.getEnvInt64OrFile("CACHE_MAX_BYTES", fileConfig.CacheMaxBytes, DefaultCacheMaxBytes)

	return cfg
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.errs...)

	switch c.DeliveryMode {
	case "raw", "url", "key", "datauri":
	default:
		errs = append(errs, fmt.Errorf("DELIVERY_MODE: unknown mode %q", c.DeliveryMode))
	}

	switch c.StorageBackend {
	case "sqlite":
	case "postgres", "mongo":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for the %s backend", c.StorageBackend))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND: unknown backend %q", c.StorageBackend))
	}

	switch c.ProviderAuth {
	case "header", "query":
	default:
		errs = append(errs, fmt.Errorf("PROVIDER_AUTH: must be header or query, got %q", c.ProviderAuth))
	}

	if u, err := url.Parse(c.ProviderEndpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("PROVIDER_ENDPOINT: must be an absolute http(s) URL, got %q", c.ProviderEndpoint))
	}
	if c.PublicBaseURL != "" {
		if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL: must be an absolute URL, got %q", c.PublicBaseURL))
		}
	}

	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT must be positive"))
	}
	if c.ReferenceTimeout <= 0 {
		errs = append(errs, errors.New("REFERENCE_TIMEOUT must be positive"))
	}
	if c.ReferenceMaxBytes <= 0 {
		errs = append(errs, errors.New("REFERENCE_MAX_BYTES must be positive"))
	}
	if c.ProviderMaxResponseBytes <= 0 {
		errs = append(errs, errors.New("PROVIDER_MAX_RESPONSE_BYTES must be positive"))
	}
	if c.ExtractMinRun <= 0 {
		errs = append(errs, errors.New("EXTRACT_MIN_RUN must be positive"))
	}
	if c.CacheMaxBytes < 0 {
		errs = append(errs, errors.New("CACHE_MAX_BYTES must not be negative"))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// getEnvOrFile returns env value, file value, or default (in priority order)
func getEnvOrFile(key, fileValue, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

// getEnvBoolOrFile returns env bool, file bool, or default (in priority order)
func getEnvBoolOrFile(key string, fileValue *bool, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	if fileValue != nil {
		return *fileValue
	}
	return defaultValue
}

// getEnvDurationOrFile parses a Go duration ("30s") from env or file.
func (c *Config) getEnvDurationOrFile(key, fileValue string, defaultValue time.Duration) time.Duration {
	raw := getEnvOrFile(key, fileValue, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		c.errs = append(c.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

// getEnvInt64OrFile parses an integer from env or file.
func (c *Config) getEnvInt64OrFile(key string, fileValue *int64, defaultValue int64) int64 {
	if raw := os.Getenv(key); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.errs = append(c.errs, fmt.Errorf("%s: %w", key, err))
			return defaultValue
		}
		return n
	}
	if fileValue != nil {
		return *fileValue
	}
	return defaultValue
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
