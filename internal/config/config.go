package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// GitHub document store
	GitHubToken      string `json:"-"`
	GitHubOwner      string `json:"github_owner"`
	GitHubRepo       string `json:"github_repo"`
	GitHubBranch     string `json:"github_branch"`
	GitHubAPIURL     string `json:"github_api_url"`
	GitHubDataPath   string `json:"github_data_path"`
	GitHubRetryCount int    `json:"github_retry_count"`

	// Local fallback store. An empty RedisURL keeps it in memory.
	RedisURL    string `json:"redis_url"`
	RedisPrefix string `json:"redis_prefix"`

	// Facade
	CacheTTL            time.Duration `json:"cache_ttl"`
	JournalSize         int           `json:"journal_size"`
	RemoteCheckInterval time.Duration `json:"remote_check_interval"`

	// CloudFlare R2 Configuration
	R2Endpoint     string `json:"r2_endpoint"`
	R2AccessKey    string `json:"-"`
	R2SecretKey    string `json:"-"`
	R2Bucket       string `json:"r2_bucket"`
	R2AccountID    string `json:"r2_account_id"`
	MediaPublicURL string `json:"media_public_url"`
	MaxUploadSize  int64  `json:"max_upload_size"`

	// Change notifier
	StatusBaseURL        string        `json:"status_base_url"`
	PollInterval         time.Duration `json:"poll_interval"`
	ConnectTimeout       time.Duration `json:"connect_timeout"`
	MaxReconnectAttempts int           `json:"max_reconnect_attempts"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogFile   string `json:"log_file"`
	LogPretty bool   `json:"log_pretty"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	port := getEnv("PORT", "8080")
	cfg := &Config{
		Port:            port,
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		GitHubToken:      getEnv("GITHUB_TOKEN", ""),
		GitHubOwner:      getEnv("GITHUB_OWNER", ""),
		GitHubRepo:       getEnv("GITHUB_REPO", ""),
		GitHubBranch:     getEnv("GITHUB_BRANCH", "main"),
		GitHubAPIURL:     getEnv("GITHUB_API_URL", "https://api.github.com"),
		GitHubDataPath:   getEnv("GITHUB_DATA_PATH", "data"),
		GitHubRetryCount: getEnvAsInt("GITHUB_RETRY_COUNT", 2),

		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "studio_"),

		CacheTTL:            getEnvAsDuration("CACHE_TTL", 0),
		JournalSize:         getEnvAsInt("JOURNAL_SIZE", 256),
		RemoteCheckInterval: getEnvAsDuration("REMOTE_CHECK_INTERVAL", 30*time.Second),

		R2Endpoint:     getEnv("R2_ENDPOINT", ""),
		R2AccessKey:    getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey:    getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:       getEnv("R2_BUCKET", "studio-media"),
		R2AccountID:    getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		MediaPublicURL: getEnv("MEDIA_PUBLIC_URL", ""),
		MaxUploadSize:  getEnvAsInt64("MAX_UPLOAD_SIZE", 10<<20), // 10MB

		StatusBaseURL:        getEnv("STATUS_BASE_URL", "http://localhost:"+port),
		PollInterval:         getEnvAsDuration("POLL_INTERVAL", 10*time.Second),
		ConnectTimeout:       getEnvAsDuration("CONNECT_TIMEOUT", 10*time.Second),
		MaxReconnectAttempts: getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 5),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
	}

	// An explicitly empty branch still means main.
	if strings.TrimSpace(cfg.GitHubBranch) == "" {
		cfg.GitHubBranch = "main"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %v", c.PollInterval)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("CONNECT_TIMEOUT must be positive, got %v", c.ConnectTimeout)
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("MAX_RECONNECT_ATTEMPTS must not be negative")
	}
	if c.JournalSize <= 0 {
		return fmt.Errorf("JOURNAL_SIZE must be positive")
	}
	if c.GitHubRetryCount < 0 {
		return fmt.Errorf("GITHUB_RETRY_COUNT must not be negative")
	}
	return nil
}

// GitHubConfigured reports whether token, owner and repo are all present.
func (c *Config) GitHubConfigured() bool {
	return c.GitHubToken != "" && c.GitHubOwner != "" && c.GitHubRepo != ""
}

// R2Configured reports whether media uploads can be enabled.
func (c *Config) R2Configured() bool {
	return c.R2Endpoint != "" && c.R2AccessKey != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsInt64(name string, defaultVal int64) int64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
