package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendREST = "rest"
	BackendSDK  = "sdk"

	StorageMemory = "memory"
	StorageFile   = "file"
	StorageMinio  = "minio"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	Port                string
	DatabaseURL         string
	GeminiAPIKey        string
	GeminiBaseURL       string
	GenAIBackend        string
	ImageModel          string
	VideoModel          string
	VideoResolution     string
	VideoPollInterval   time.Duration
	VideoMaxPolls       int
	VideoTimeout        time.Duration
	StorageBackend      string
	StoragePath         string
	MinioEndpoint       string
	MinioAccessKey      string
	MinioSecretKey      string
	MinioBucket         string
	MinioUseSSL         bool
	GeoIPDBPath         string
	CORSAllowedOrigins  []string
	RateLimitPerMin     int
	SessionIdleTimeout  time.Duration
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	ProviderHTTPTimeout time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GenAIBackend:        strings.ToLower(getEnv("GENAI_BACKEND", BackendREST)),
		ImageModel:          getEnv("IMAGE_MODEL", "gemini-3-pro-image-preview"),
		VideoModel:          getEnv("VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
		VideoResolution:     getEnv("VIDEO_RESOLUTION", "720p"),
		VideoPollInterval:   getEnvSeconds("VIDEO_POLL_INTERVAL_SECONDS", 5),
		VideoMaxPolls:       getEnvInt("VIDEO_MAX_POLLS", 120),
		VideoTimeout:        getEnvSeconds("VIDEO_TIMEOUT_SECONDS", 900),
		StorageBackend:      strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		StoragePath:         getEnv("STORAGE_PATH", "./storage"),
		MinioEndpoint:       os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:      os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:      os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:         getEnv("MINIO_BUCKET", "logomotion"),
		MinioUseSSL:         getEnvBool("MINIO_USE_SSL", false),
		GeoIPDBPath:         os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins:  splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		SessionIdleTimeout:  time.Minute * time.Duration(getEnvInt("SESSION_IDLE_TIMEOUT_MINUTES", 60)),
		HTTPReadTimeout:     getEnvSeconds("HTTP_READ_TIMEOUT_SECONDS", 15),
		HTTPWriteTimeout:    getEnvSeconds("HTTP_WRITE_TIMEOUT_SECONDS", 180),
		HTTPIdleTimeout:     getEnvSeconds("HTTP_IDLE_TIMEOUT_SECONDS", 60),
		ProviderHTTPTimeout: getEnvSeconds("PROVIDER_HTTP_TIMEOUT_SECONDS", 120),
	}

	switch cfg.GenAIBackend {
	case BackendREST, BackendSDK:
	default:
		return nil, fmt.Errorf("GENAI_BACKEND must be %q or %q, got %q", BackendREST, BackendSDK, cfg.GenAIBackend)
	}

	switch cfg.StorageBackend {
	case StorageMemory, StorageFile:
	case StorageMinio:
		if cfg.MinioEndpoint == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_BACKEND=minio")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.VideoPollInterval <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.VideoMaxPolls < 0 {
		return nil, fmt.Errorf("VIDEO_MAX_POLLS must not be negative")
	}

	return cfg, nil
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

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Second * time.Duration(getEnvInt(key, fallback))
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
