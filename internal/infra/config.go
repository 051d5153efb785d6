package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	LogLevel         string
	DatabaseURL      string
	DBMaxConns       int
	DBMinConns       int
	JWTSecret        string
	GeoIPDBPath      string
	CORSOrigins      []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	PredictionBaseURL      string
	PredictionAPIToken     string
	PredictionWebhookURL   string
	PredictionWebhookToken string
	ProModel               string

	CaptionProvider string
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string

	ClassicCredits      int
	ProCredits          int
	SubmissionInterval  time.Duration
	RateLimitRetries    int
	RateLimitBuffer     time.Duration
	DefaultFashionStyle string
	WorkerPollInterval  time.Duration
}

// LoadDotEnv reads .env.local then .env when present. Variables already set
// in the environment win.
func LoadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	LoadDotEnv()

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:       getEnvInt("DB_MIN_CONNS", 1),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		PredictionBaseURL:      getEnv("PREDICTION_BASE_URL", "https://api.replicate.com/v1"),
		PredictionAPIToken:     os.Getenv("PREDICTION_API_TOKEN"),
		PredictionWebhookURL:   os.Getenv("PREDICTION_WEBHOOK_URL"),
		PredictionWebhookToken: os.Getenv("PREDICTION_WEBHOOK_TOKEN"),
		ProModel:               getEnv("PRO_MODEL", "google/nano-banana-pro"),

		CaptionProvider: strings.ToLower(getEnv("CAPTION_PROVIDER", "gemini")),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		ClassicCredits:      getEnvInt("CREDITS_CLASSIC", 1),
		ProCredits:          getEnvInt("CREDITS_PRO", 2),
		SubmissionInterval:  time.Second * time.Duration(getEnvInt("SUBMISSION_INTERVAL_SECONDS", 11)),
		RateLimitRetries:    getEnvInt("RATE_LIMIT_RETRIES", 3),
		RateLimitBuffer:     time.Second * time.Duration(getEnvInt("RATE_LIMIT_BUFFER_SECONDS", 2)),
		DefaultFashionStyle: getEnv("DEFAULT_FASHION_STYLE", "casual"),
		WorkerPollInterval:  time.Second * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 2)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.DBMaxConns <= 0 || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) and DB_MAX_CONNS (%d) must satisfy 0 <= min <= max, max > 0", cfg.DBMinConns, cfg.DBMaxConns)
	}

	switch cfg.CaptionProvider {
	case "gemini", "openai", "static":
	default:
		return nil, fmt.Errorf("CAPTION_PROVIDER %q is not one of gemini, openai, static", cfg.CaptionProvider)
	}

	if cfg.ClassicCredits <= 0 || cfg.ProCredits <= 0 {
		return nil, fmt.Errorf("CREDITS_CLASSIC and CREDITS_PRO must be positive")
	}
	if cfg.RateLimitRetries < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RETRIES (%d) must not be negative", cfg.RateLimitRetries)
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

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
