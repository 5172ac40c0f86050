package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vision providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Config holds runtime settings for the API server and CLI tools.
type Config struct {
	// HTTP server
	Port           string
	LogLevel       string
	MaxUploadBytes int64
	AnalyzeTimeout time.Duration

	// Storage
	GCPProjectID string
	BQDataset    string
	GCSBucket    string

	// Vision model
	VisionProvider  string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string

	// Auth
	JWTSecret string

	// Receipt archive queue
	ArchiveQueueSize int
	ArchiveWorkers   int
	ArchiveRetention int

	// Notion export
	NotionToken      string
	NotionDatabaseID string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		AnalyzeTimeout: getEnvDuration("ANALYZE_TIMEOUT", 60*time.Second),

		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),
		BQDataset:    getEnv("BQ_DATASET", "finance"),
		GCSBucket:    getEnv("GCS_BUCKET", ""),

		VisionProvider:  strings.ToLower(getEnv("VISION_PROVIDER", ProviderGemini)),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),

		JWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		ArchiveQueueSize: getEnvInt("ARCHIVE_QUEUE_SIZE", 100),
		ArchiveWorkers:   getEnvInt("ARCHIVE_WORKERS", 2),
		ArchiveRetention: getEnvInt("ARCHIVE_JOB_RETENTION", 100),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.GCPProjectID == "" {
		errs = append(errs, "GCP_PROJECT_ID is required")
	}
	if c.BQDataset == "" {
		errs = append(errs, "BQ_DATASET must not be empty")
	}

	switch c.VisionProvider {
	case ProviderGemini:
		if c.GeminiModel == "" {
			errs = append(errs, "GEMINI_MODEL must not be empty")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, "ANTHROPIC_API_KEY is required when VISION_PROVIDER=anthropic")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid VISION_PROVIDER '%s': must be one of %s, %s", c.VisionProvider, ProviderGemini, ProviderAnthropic))
	}

	if len(c.JWTSecret) < 16 {
		errs = append(errs, "AUTH_JWT_SECRET must be at least 16 characters")
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, "MAX_UPLOAD_BYTES must be positive")
	}
	if c.AnalyzeTimeout <= 0 {
		errs = append(errs, "ANALYZE_TIMEOUT must be positive")
	}
	if c.ArchiveWorkers < 1 {
		errs = append(errs, "ARCHIVE_WORKERS must be at least 1")
	}
	if c.ArchiveRetention < 1 {
		errs = append(errs, "ARCHIVE_JOB_RETENTION must be at least 1")
	}
	if c.ArchiveQueueSize < 1 {
		errs = append(errs, "ARCHIVE_QUEUE_SIZE must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ArchiveEnabled reports whether receipt images are archived to a bucket.
func (c *Config) ArchiveEnabled() bool {
	return c.GCSBucket != ""
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := getEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := getEnv(key, ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
