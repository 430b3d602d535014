package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var DefaultUnits = []string{"Engineering", "Economics", "Life Sciences", "Education"}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Qdrant   QdrantConfig
	Gemini   GeminiConfig
	Scoring  ScoringConfig
	Storage  StorageConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// Enabled reports whether the talent pool index should be wired.
func (q QdrantConfig) Enabled() bool {
	return q.URL != ""
}

type GeminiConfig struct {
	APIKey           string
	Model            string
	AutoSelect       bool
	ModelPreferences []string
	EmbedModel       string
	Temperature      float32
}

type ScoringConfig struct {
	MaxChars          int
	Timeout           time.Duration
	Delay             time.Duration
	MaxAttempts       int
	RetryInitialDelay time.Duration
	Dedup             bool
	Concurrency       int
	Units             []string
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "cv_screener"),
			SQLitePath: getEnv("SQLITE_PATH", "./cv_screener.db"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "cv_screener_candidates"),
		},
		Gemini: GeminiConfig{
			APIKey:           getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
			Model:            getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			AutoSelect:       getEnvAsBool("GEMINI_AUTO_SELECT", false),
			ModelPreferences: getEnvAsList("GEMINI_MODEL_PREFERENCES", []string{"2.5-flash", "2.0-flash", "flash", "pro"}),
			EmbedModel:       getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
			Temperature:      getEnvAsFloat32("GEMINI_TEMPERATURE", 0.2),
		},
		Scoring: ScoringConfig{
			MaxChars:          getEnvAsInt("SCORING_MAX_CHARS", 12000),
			Timeout:           getEnvAsDuration("SCORING_TIMEOUT", "60s"),
			Delay:             getEnvAsDuration("SCORING_DELAY", "1s"),
			MaxAttempts:       getEnvAsInt("SCORING_MAX_ATTEMPTS", 3),
			RetryInitialDelay: getEnvAsDuration("SCORING_RETRY_INITIAL_DELAY", "2s"),
			Dedup:             getEnvAsBool("SCORING_DEDUP", true),
			Concurrency:       getEnvAsInt("SCORING_CONCURRENCY", 1),
			Units:             getEnvAsList("SCREENING_UNITS", DefaultUnits),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 2),
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
		},
	}
}

// ErrMissingAPIKey is fatal for any command that scores files.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// Validate checks the settings every scoring entrypoint depends on.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("config error: GEMINI_TEMPERATURE must be between 0 and 2")
	}
	if c.Scoring.MaxChars <= 0 {
		return fmt.Errorf("config error: SCORING_MAX_CHARS must be positive")
	}
	if c.Scoring.Delay < 0 {
		return fmt.Errorf("config error: SCORING_DELAY must be non-negative")
	}
	if c.Scoring.MaxAttempts < 1 {
		return fmt.Errorf("config error: SCORING_MAX_ATTEMPTS must be at least 1")
	}
	if len(c.Scoring.Units) == 0 {
		return fmt.Errorf("config error: SCREENING_UNITS is empty")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config error: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLitePath
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
		return float32(value)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
