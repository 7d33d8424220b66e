package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string
	Port            string
	AppEnv          string
	LogFile         string
	AssistantName   string
	GeminiAPIKey    string
	GeminiModel     string
	GroqAPIKey      string
	GroqModel       string
	ProviderTimeout int // seconds, per provider call
	LineSecret      string
	LineToken       string
	NotionAPIKey    string
	NotionPageIDs   []string
	KnowledgeTTL    int // hours
	JWTSecret       string
	AdminPassHash   string // bcrypt hash for the admin login
}

// LoadConfig loads the environment variables and returns the config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		Port:            getEnv("PORT", "8080"),
		AppEnv:          getEnv("APP_ENV", "development"),
		LogFile:         getEnv("LOG_FILE", ""),
		AssistantName:   getEnv("ASSISTANT_NAME", "導師室"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GroqModel:       getEnv("GROQ_MODEL", "gemma2-9b-it"),
		ProviderTimeout: getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30),
		LineSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		LineToken:       getEnv("LINE_CHANNEL_TOKEN", ""),
		NotionAPIKey:    getEnv("NOTION_API_KEY", ""),
		NotionPageIDs:   getEnvList("NOTION_PAGE_IDS"),
		KnowledgeTTL:    getEnvInt("KNOWLEDGE_TTL_HOURS", 24),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		AdminPassHash:   getEnv("ADMIN_PASSWORD_HASH", ""),
	}

	if cfg.LineSecret == "" || cfg.LineToken == "" {
		log.Fatal("LINE_CHANNEL_SECRET / LINE_CHANNEL_TOKEN not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

// getEnvList parses a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
