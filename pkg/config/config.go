package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Translate TranslateConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Secrets   SecretsConfig
	Sentry    SentryConfig
	Tracing   TracingConfig
	Profiles  ProfilesConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	Environment    string
	ServiceName    string
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int    // seconds, applied to JSON endpoints
	CORSOrigins    string // Comma-separated list of allowed origins
	MaxUploadMB    int
}

// TranslateConfig holds machine-translation provider configuration
type TranslateConfig struct {
	Provider        string // google | libretranslate
	APIKey          string
	APIKeySecret    string // secret reference, resolved through pkg/secrets when APIKey is empty
	Endpoint        string
	BatchSize       int
	TimeoutSeconds  int
	CredentialsFile string
}

// StorageConfig holds output file storage configuration
type StorageConfig struct {
	Provider  string // local | s3
	LocalPath string
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Key      string
}

// SecretsConfig holds secret manager configuration
type SecretsConfig struct {
	Provider     string // gcp | aws
	GCPProjectID string
	AWSRegion    string
	CacheTTL     time.Duration
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	DSN        string
	SampleRate float64
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	Insecure     bool
}

// ProfilesConfig points at an optional TOML file with target profile overrides
type ProfilesConfig struct {
	File string
}

// RateLimitConfig limits how often one client may start a job. It only takes
// effect when Redis is enabled.
type RateLimitConfig struct {
	Enabled       bool
	Limit         int
	WindowSeconds int
	RedisPrefix   string
}

// Window returns the counting window, one minute when unset
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 30),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 60),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT", 10),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
			MaxUploadMB:    getEnvAsInt("MAX_UPLOAD_MB", 10),
		},
		Translate: TranslateConfig{
			Provider:        getEnv("TRANSLATE_PROVIDER", "google"),
			APIKey:          getEnv("TRANSLATE_API_KEY", ""),
			APIKeySecret:    getEnv("TRANSLATE_API_KEY_SECRET", ""),
			Endpoint:        getEnv("TRANSLATE_ENDPOINT", ""),
			BatchSize:       getEnvAsInt("TRANSLATE_BATCH_SIZE", 5),
			TimeoutSeconds:  getEnvAsInt("TRANSLATE_TIMEOUT", 30),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Storage: StorageConfig{
			Provider:  getEnv("STORAGE_PROVIDER", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "."),
			Bucket:    getEnv("STORAGE_BUCKET", ""),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Prefix:    getEnv("STORAGE_PREFIX", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Key:      getEnv("REDIS_PROGRESS_KEY", "langsheet:progress"),
		},
		Secrets: SecretsConfig{
			Provider:     getEnv("SECRETS_PROVIDER", ""),
			GCPProjectID: getEnv("SECRETS_GCP_PROJECT_ID", ""),
			AWSRegion:    getEnv("SECRETS_AWS_REGION", ""),
			CacheTTL:     time.Duration(getEnvAsInt("SECRETS_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Sentry: SentryConfig{
			DSN:        getEnv("SENTRY_DSN", ""),
			SampleRate: getEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("TRACING_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:     getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
		Profiles: ProfilesConfig{
			File: getEnv("PROFILES_FILE", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Limit:         getEnvAsInt("RATE_LIMIT_TRANSLATE", 10),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			RedisPrefix:   getEnv("RATE_LIMIT_REDIS_PREFIX", "langsheet:ratelimit"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings that cannot fall back to a default
func (c *Config) Validate() error {
	switch c.Translate.Provider {
	case "google", "libretranslate":
	default:
		return fmt.Errorf("config: unsupported TRANSLATE_PROVIDER %q", c.Translate.Provider)
	}

	if c.Translate.Provider == "libretranslate" && c.Translate.Endpoint == "" {
		return fmt.Errorf("config: TRANSLATE_ENDPOINT is required for libretranslate")
	}

	if c.Translate.BatchSize <= 0 {
		return fmt.Errorf("config: TRANSLATE_BATCH_SIZE must be positive, got %d", c.Translate.BatchSize)
	}

	switch c.Storage.Provider {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("config: STORAGE_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("config: unsupported STORAGE_PROVIDER %q", c.Storage.Provider)
	}

	return nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// CORSOriginList splits the comma-separated CORS origins
func (c *ServerConfig) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// MaxUploadBytes returns the upload limit in bytes
func (c *ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
