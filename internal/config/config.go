package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string

	// JWT auth
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	// Primary model provider (Gemini)
	GeminiAPIKey string
	GeminiModel  string

	// Fallback provider (OpenAI-compatible chat completions)
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string

	// Optional JSON file overriding provider settings at runtime
	ProvidersFile string

	// Assistant session eviction
	AssistantSessionTTL time.Duration

	// Webhook turn rate limiting per (tenant, user)
	TurnRatePerMinute int
	TurnRateBurst     int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3001"),
		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", ""),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		AccessTokenExpiry:  getDurationEnv("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		RefreshTokenExpiry: getDurationEnv("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		ProvidersFile: getEnv("PROVIDERS_FILE", ""),

		AssistantSessionTTL: getDurationEnv("ASSISTANT_SESSION_TTL", 30*time.Minute),

		TurnRatePerMinute: getIntEnv("TURN_RATE_PER_MINUTE", 10),
		TurnRateBurst:     getIntEnv("TURN_RATE_BURST", 3),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
