package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	Debug   bool
	Port    string
	BaseURL string

	// Logging
	LogLevel string
	LogJSON  bool

	// Database
	DatabaseURL string

	// Auth
	TokenSecret string // HMAC secret for panel session tokens

	// Node agents (Wings)
	AgentTimeout         time.Duration // Timeout for outbound agent calls
	TransferTokenExpiry  time.Duration // Lifetime of transfer JWTs handed to agents
	BackupUploadPartSize int64         // Part size for multipart backup uploads (bytes)
}

// DefaultBackupUploadPartSize is the multipart chunk size used when the
// configured value is missing or unusable.
const DefaultBackupUploadPartSize = 5 * 1024 * 1024

// Load loads configuration from environment
func Load() *Config {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		AppName:              getEnv("APP_NAME", "Perch"),
		Debug:                getEnvBool("DEBUG", false),
		Port:                 getEnv("PORT", "8000"),
		BaseURL:              getEnv("BASE_URL", "http://localhost:8000"),
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		LogJSON:              getEnvBool("LOG_JSON", false),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		TokenSecret:          getEnv("TOKEN_SECRET", ""),
		AgentTimeout:         getEnvDuration("AGENT_TIMEOUT", 30*time.Second),
		TransferTokenExpiry:  getEnvDuration("TRANSFER_TOKEN_EXPIRY", time.Hour),
		BackupUploadPartSize: getEnvInt64("BACKUP_UPLOAD_PART_SIZE", DefaultBackupUploadPartSize),
	}

	// A zero or negative part size would make upload math divide by
	// zero; fall back rather than trust a broken env value.
	if cfg.BackupUploadPartSize <= 0 {
		log.Printf("Invalid BACKUP_UPLOAD_PART_SIZE, using default: %d", int64(DefaultBackupUploadPartSize))
		cfg.BackupUploadPartSize = DefaultBackupUploadPartSize
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("Invalid boolean for %s, using default: %v", key, defaultValue)
			return defaultValue
		}
		return boolVal
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			log.Printf("Invalid integer for %s, using default: %d", key, defaultValue)
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("Invalid duration for %s, using default: %s", key, defaultValue)
			return defaultValue
		}
		return d
	}
	return defaultValue
}
