package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MemoryDatabaseURL selects the in-memory repositories instead of PostgreSQL.
const MemoryDatabaseURL = "memory://"

// Config represents application configuration loaded from environment variables.
// It is built once at startup and passed by pointer; nothing reads the
// environment after LoadConfig returns.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	StoragePath        string
	StaticPrefix       string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	ModelTimeout       time.Duration
	ModelRatePerMin    int
	GenerationWorkers  int
	GenerationQueue    int
	RecoverPending     bool
	DeleteTextOutputs  bool
	MaxUploadBytes     int64
	ArtifactCacheTTL   time.Duration
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	TrustProxyHeaders  bool
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StoragePath:        getEnv("STORAGE_PATH", "./static"),
		StaticPrefix:       "/" + strings.Trim(getEnv("STATIC_PREFIX", "/static"), "/"),
		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:        strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		GeminiBaseURL:      os.Getenv("GEMINI_BASE_URL"),
		ModelTimeout:       time.Second * time.Duration(getEnvInt("MODEL_TIMEOUT_SECONDS", 120)),
		ModelRatePerMin:    getEnvInt("MODEL_RATE_PER_MINUTE", 30),
		GenerationWorkers:  getEnvInt("GENERATION_WORKERS", 4),
		GenerationQueue:    getEnvInt("GENERATION_QUEUE_SIZE", 64),
		RecoverPending:     getEnvBool("RECOVER_PENDING_ON_START", true),
		DeleteTextOutputs:  getEnvBool("DELETE_TEXT_OUTPUTS", false),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,
		ArtifactCacheTTL:   time.Second * time.Duration(getEnvInt("ARTIFACT_CACHE_TTL_SECONDS", 600)),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		TrustProxyHeaders:  getEnvBool("TRUST_PROXY_HEADERS", false),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ModelTimeout <= 0 {
		return nil, fmt.Errorf("MODEL_TIMEOUT_SECONDS must be positive")
	}
	if cfg.GenerationWorkers <= 0 {
		cfg.GenerationWorkers = 1
	}
	if cfg.GenerationQueue <= 0 {
		cfg.GenerationQueue = 1
	}

	return cfg, nil
}

// UsesMemoryStore reports whether DATABASE_URL selects the in-memory repositories.
func (c *Config) UsesMemoryStore() bool {
	return strings.EqualFold(strings.TrimSpace(c.DatabaseURL), MemoryDatabaseURL)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
