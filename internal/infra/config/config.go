package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	DatabaseURL         string
	AmqpURL             string // empty means the in-memory dispatch queue
	DispatchQueueName   string
	DispatchMaxAttempts int
	WorkerConcurrency   int
	CronSpecTick        string
	HTTPAddr            string

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	TelegramToken string // optional; enables the ops notifier
	OpsChatID     int64

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.AmqpURL = os.Getenv("AMQP_URL")

	cfg.DispatchQueueName = getEnv("DISPATCH_QUEUE_NAME", "email_dispatch")
	cfg.CronSpecTick = getEnv("CRON_SPEC_TICK", "* * * * *")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	var err error
	if cfg.DispatchMaxAttempts, err = getEnvInt("DISPATCH_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency, err = getEnvInt("WORKER_CONCURRENCY", 4); err != nil {
		return nil, err
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = getEnv("SMTP_PORT", "587")
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")
	cfg.EmailFrom = getEnv("EMAIL_FROM", "no-reply@localhost")

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1")
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", "gpt-4o-mini")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	opsChatIDStr := os.Getenv("OPS_CHAT_ID")
	if cfg.TelegramToken != "" {
		if opsChatIDStr == "" {
			return nil, fmt.Errorf("OPS_CHAT_ID is required when TELEGRAM_TOKEN is set")
		}
		cfg.OpsChatID, err = strconv.ParseInt(opsChatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OPS_CHAT_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
