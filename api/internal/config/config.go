package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "allergen-scan/api/internal/errors"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	// InferenceProvider selects the model backend: gemini or openai.
	InferenceProvider string
	InferenceTimeout  time.Duration
	Temperature       float32

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	MaxRequestBodySize int64
	BlurThreshold      float64
	CORSAllowOrigins   []string

	// Optional collaborators; empty means disabled.
	DatabaseURL string

	ArchiveBucket    string
	ArchiveEndpoint  string
	ArchiveRegion    string
	ArchiveAccessKey string
	ArchiveSecretKey string

	TelegramBotToken   string
	TelegramWebhookURL string
}

// LoadDotEnv reads .env outside production. A missing file is fine.
func LoadDotEnv() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}
}

// Load reads the environment. A missing API key for the selected provider is
// a startup configuration error: the process must not serve without it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8000"),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		InferenceProvider: strings.ToLower(getEnv("INFERENCE_PROVIDER", ProviderGemini)),
		InferenceTimeout:  parseDurationOrDefault("INFERENCE_TIMEOUT", 60*time.Second),
		Temperature:       float32(parseFloatOrDefault("MODEL_TEMPERATURE", 0.2)),

		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),

		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 15*1024*1024),
		BlurThreshold:      parseFloatOrDefault("BLUR_THRESHOLD", 100),
		CORSAllowOrigins:   splitList(getEnv("CORS_ALLOW_ORIGINS", "*")),

		DatabaseURL: resolveDSN(),

		ArchiveBucket:    strings.TrimSpace(os.Getenv("ARCHIVE_BUCKET")),
		ArchiveEndpoint:  strings.TrimSpace(os.Getenv("ARCHIVE_ENDPOINT")),
		ArchiveRegion:    getEnv("ARCHIVE_REGION", "auto"),
		ArchiveAccessKey: strings.TrimSpace(os.Getenv("ARCHIVE_ACCESS_KEY")),
		ArchiveSecretKey: strings.TrimSpace(os.Getenv("ARCHIVE_SECRET_KEY")),

		TelegramBotToken:   strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramWebhookURL: strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
	}

	switch cfg.InferenceProvider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, apperrors.NewStartupConfigurationError("GEMINI_API_KEY not found in environment variables", []string{"GEMINI_API_KEY"})
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, apperrors.NewStartupConfigurationError("OPENAI_API_KEY not found in environment variables", []string{"OPENAI_API_KEY"})
		}
	default:
		return nil, apperrors.NewStartupConfigurationError(
			fmt.Sprintf("unknown INFERENCE_PROVIDER %q (want gemini or openai)", cfg.InferenceProvider), []string{"INFERENCE_PROVIDER"})
	}
	if p, err := strconv.Atoi(strings.TrimSpace(cfg.Port)); err != nil || p < 1 || p > 65535 {
		return nil, apperrors.NewStartupConfigurationError(fmt.Sprintf("invalid PORT: %q", cfg.Port), []string{"PORT"})
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, apperrors.NewStartupConfigurationError(
			fmt.Sprintf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize), []string{"MAX_REQUEST_BODY_SIZE"})
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, apperrors.NewStartupConfigurationError(
			fmt.Sprintf("MODEL_TEMPERATURE must be within [0,2] (got %v)", cfg.Temperature), []string{"MODEL_TEMPERATURE"})
	}
	if cfg.ArchiveBucket != "" && (cfg.ArchiveAccessKey == "" || cfg.ArchiveSecretKey == "") {
		return nil, apperrors.NewStartupConfigurationError(
			"ARCHIVE_BUCKET is set but archive credentials are missing", []string{"ARCHIVE_ACCESS_KEY", "ARCHIVE_SECRET_KEY"})
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort("0.0.0.0", strings.TrimSpace(c.Port))
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// resolveDSN prefers DATABASE_URL and falls back to POSTGRES_* only when a
// password is present, so an unconfigured environment runs without a store.
func resolveDSN() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	if pass == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "allergen"), pass),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "allergen"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func parseDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func parseIntOrDefault(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return def
}

func parseFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
