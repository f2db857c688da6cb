package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultModels is the fallback chain used when MODELS is not set.
var DefaultModels = []string{
	"google/gemini-pro",
	"anthropic/claude-3-opus",
	"openai/gpt-3.5-turbo",
}

type Config struct {
	// Server
	Port string
	Env  string

	// Completion API
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterReferer string
	OpenRouterTitle   string
	RequestTimeoutSec int
	// FetchTimeoutSec caps one whole fetch (every model, every retry) on the HTTP path.
	FetchTimeoutSec int

	// Fallback chain and sampling
	Models      []string
	MaxTokens   int
	Temperature float64
	TopP        float64

	// Retry policy
	RetryAttempts    int
	InitialBackoffMs int
	FetchConcurrency int

	GreetingReply string

	// Inbound rate limiting
	RateLimitPerMin int
	RedisURL        string

	// Attempt audit
	DatabaseURL string

	// Relay
	RelayURL string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		Env:               getEnvOrDefault("ENV", "development"),
		OpenRouterAPIKey:  getEnvOrDefault("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterReferer: getEnvOrDefault("OPENROUTER_REFERER", ""),
		OpenRouterTitle:   getEnvOrDefault("OPENROUTER_TITLE", ""),
		RequestTimeoutSec: getEnvAsIntOrDefault("REQUEST_TIMEOUT_SEC", 60),
		FetchTimeoutSec:   getEnvAsIntOrDefault("FETCH_TIMEOUT_SEC", 120),
		Models:            getEnvAsListOrDefault("MODELS", DefaultModels),
		MaxTokens:         getEnvAsIntOrDefault("MAX_TOKENS", 1000),
		Temperature:       getEnvAsFloatOrDefault("TEMPERATURE", 0.7),
		TopP:              getEnvAsFloatOrDefault("TOP_P", 0.9),
		RetryAttempts:     getEnvAsIntOrDefault("RETRY_ATTEMPTS", 3),
		InitialBackoffMs:  getEnvAsIntOrDefault("INITIAL_BACKOFF_MS", 1000),
		FetchConcurrency:  getEnvAsIntOrDefault("FETCH_CONCURRENCY", 5),
		GreetingReply:     getEnvOrDefault("GREETING_REPLY", ""),
		RateLimitPerMin:   getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 30),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		RelayURL:          getEnvOrDefault("RELAY_URL", "ws://localhost:8080/api/v1/ws"),
		FrontendURL:       getEnvOrDefault("FRONTEND_URL", "http://localhost:8080"),
	}

	return cfg
}

// RequireAPIKey reports an error when the completion API credential is missing.
// Only the direct-call path needs it; a relay-only client can run without one.
func (c *Config) RequireAPIKey() error {
	if c.OpenRouterAPIKey == "" {
		return fmt.Errorf("required environment variable %s is not set", "OPENROUTER_API_KEY")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// getEnvAsListOrDefault splits a comma separated value, dropping blanks and repeats
// while keeping the first occurrence's position.
func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), defaultVal...)
	}

	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	if len(out) == 0 {
		return append([]string(nil), defaultVal...)
	}
	return out
}
