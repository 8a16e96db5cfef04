package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Sealing key for provider secrets at rest (32 bytes, raw or hex)
	EncryptionKey string

	// Generation backend: "openai" (OpenAI-compatible chain) or "gemini"
	AIProvider string

	GLMAPIKey string
	GLMAPIURL string
	GLMModel  string

	DeepSeekAPIKey string
	DeepSeekAPIURL string
	DeepSeekModel  string

	OpenAIAPIKey string
	OpenAIAPIURL string
	OpenAIModel  string

	GeminiAPIKey string
	GeminiModel  string

	AITimeout time.Duration

	// Provider gateways
	ProviderTimeout time.Duration
	GitHubAPIURL    string
	TogglAPIURL     string
	NotionAPIURL    string
	NotionVersion   string

	// Reports
	ReportsAllowReopen bool

	// Logging
	LogRetentionDays int

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "nippogen"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		AIProvider: getEnv("AI_PROVIDER", "openai"),

		GLMAPIKey: getEnv("GLM_API_KEY", ""),
		GLMAPIURL: getEnv("GLM_API_URL", "https://api.z.ai/api/paas/v4/chat/completions"),
		GLMModel:  getEnv("GLM_MODEL", "glm-5"),

		DeepSeekAPIKey: getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekAPIURL: getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com/v1/chat/completions"),
		DeepSeekModel:  getEnv("DEEPSEEK_MODEL", "deepseek-chat"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIAPIURL: getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		AITimeout: parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second),

		ProviderTimeout: parseDuration(getEnv("PROVIDER_TIMEOUT", "15s"), 15*time.Second),
		GitHubAPIURL:    getEnv("GITHUB_API_URL", "https://api.github.com"),
		TogglAPIURL:     getEnv("TOGGL_API_URL", "https://api.track.toggl.com/api/v9"),
		NotionAPIURL:    getEnv("NOTION_API_URL", "https://api.notion.com/v1"),
		NotionVersion:   getEnv("NOTION_VERSION", "2022-06-28"),

		ReportsAllowReopen: parseBool(getEnv("REPORTS_ALLOW_REOPEN", "false")),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// Missing returns the names of required settings that are empty.
func (c *Config) Missing() []string {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.DBPassword == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if c.EncryptionKey == "" {
		missing = append(missing, "ENCRYPTION_KEY")
	}
	return missing
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
