// Package config loads Insight Lab configuration from environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Manjussha/insightlab/internal/platform"
)

// Config holds all runtime configuration for Insight Lab.
type Config struct {
	Port    string
	WorkDir string
	DBPath  string

	OpenAIKey       string
	OpenAIBaseURL   string
	OpenAIModel     string
	UpstreamTimeout time.Duration
	BackendURLs     []string

	PricingFile string
	AdminToken  string

	TelegramToken  string
	TelegramChatID int64

	DailyTokenLimit int
	SessionIdle     time.Duration
	UsageRetention  time.Duration
}

// Load reads environment variables and returns a Config.
// Uses sensible defaults for optional fields.
// Panics if required fields are empty.
func Load() *Config {
	workDir := getEnv("WORK_DIR", platform.DefaultWorkDir())

	dbPath := getEnv("DB_PATH", filepath.Join(workDir, "insightlab.db"))
	if dbPath == "" {
		panic("config: DB_PATH is required")
	}

	chatID, _ := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)

	return &Config{
		Port:    getEnv("PORT", "8080"),
		WorkDir: workDir,
		DBPath:  dbPath,

		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "text-davinci-003"),
		UpstreamTimeout: time.Duration(getEnvFloat("UPSTREAM_TIMEOUT_SECONDS", 30) * float64(time.Second)),
		BackendURLs:     splitList(os.Getenv("BACKEND_URLS")),

		PricingFile: os.Getenv("PRICING_FILE"),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),

		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: chatID,

		DailyTokenLimit: getEnvInt("DAILY_TOKEN_LIMIT", 200000),
		SessionIdle:     time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 60)) * time.Minute,
		UsageRetention:  time.Duration(getEnvInt("USAGE_RETENTION_DAYS", 30)) * 24 * time.Hour,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
