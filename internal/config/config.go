package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Store backend: postgres, mongo or memory
	StoreDriver string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MongoURI      string
	MongoDatabase string

	// JWT issued by the external identity provider
	JWTSecret string

	// AI Providers
	AIProvider string

	GeminiAPIKey string
	GeminiModel  string

	OpenAICompatAPIURL string
	OpenAICompatAPIKey string
	OpenAICompatModel  string

	AITimeout time.Duration

	// Blob storage
	StorageDir     string
	PublicBaseURL  string
	MaxUploadBytes int64

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Server
	Port        string
	CORSOrigins string

	// Observability
	LogFile   string
	SentryDSN string
	AppEnv    string
}

// Load reads configuration from the environment, after applying an optional
// .env file from the working directory.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	port := getEnv("PORT", "8080")
	return &Config{
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "edushare_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "edushare"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AIProvider: getEnv("AI_PROVIDER", "gemini"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		OpenAICompatAPIURL: getEnv("OPENAI_COMPAT_API_URL", "https://api.deepseek.com/v1/chat/completions"),
		OpenAICompatAPIKey: getEnv("OPENAI_COMPAT_API_KEY", ""),
		OpenAICompatModel:  getEnv("OPENAI_COMPAT_MODEL", "deepseek-chat"),

		AITimeout: parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second),

		StorageDir:     getEnv("STORAGE_DIR", "./data/blobs"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
		MaxUploadBytes: parseInt(getEnv("MAX_UPLOAD_BYTES", "5242880"), 5<<20),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		Port:        port,
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		LogFile:   getEnv("LOG_FILE", ""),
		SentryDSN: getEnv("SENTRY_DSN", ""),
		AppEnv:    getEnv("APP_ENV", "development"),
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

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
