package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Database     DatabaseConfig
	Auth         AuthConfig
	BrightData   BrightDataConfig
	Services     ServicesConfig
	Redis        RedisConfig
	Verification VerificationConfig
	Server       ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Username string
	Password string
	Name     string
}

// AuthConfig holds authentication-related configuration
type AuthConfig struct {
	JWTSecret string
}

// BrightDataConfig holds the scraping vendor credentials and dataset handles
type BrightDataConfig struct {
	APIKey             string
	TikTokDatasetID    string
	InstagramDatasetID string
	YouTubeDatasetID   string
	WebhookSecret      string
}

// ServicesConfig holds external service API keys and configuration
type ServicesConfig struct {
	OpenAIAPIKey       string
	GoogleAIAPIKey     string
	ResendAPIKey       string
	DefaultEmailSender string
	WebAppURI          string
}

// RedisConfig holds Redis connection settings for leaderboards and rate limiting
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// VerificationConfig holds the bio-verification polling parameters
type VerificationConfig struct {
	PollInterval time.Duration // delay between snapshot status checks
	PollDeadline time.Duration // total budget before a verification attempt times out
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}

	// Database configuration
	var err error
	if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.Database.Username, err = requireEnv("DB_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.Database.Name, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}

	// Auth configuration
	if cfg.Auth.JWTSecret, err = requireEnv("JWT_SECRET"); err != nil {
		return nil, err
	}

	// BrightData configuration
	if cfg.BrightData.APIKey, err = requireEnv("BRIGHTDATA_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.BrightData.TikTokDatasetID, err = requireEnv("BRIGHTDATA_TIKTOK_DATASET_ID"); err != nil {
		return nil, err
	}
	if cfg.BrightData.InstagramDatasetID, err = requireEnv("BRIGHTDATA_INSTAGRAM_DATASET_ID"); err != nil {
		return nil, err
	}
	if cfg.BrightData.YouTubeDatasetID, err = requireEnv("BRIGHTDATA_YOUTUBE_DATASET_ID"); err != nil {
		return nil, err
	}
	cfg.BrightData.WebhookSecret = getEnvWithDefault("BRIGHTDATA_WEBHOOK_SECRET", "")

	// Services configuration
	if cfg.Services.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.Services.GoogleAIAPIKey, err = requireEnv("GOOGLE_AI_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.Services.ResendAPIKey, err = requireEnv("RESEND_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.Services.DefaultEmailSender, err = requireEnv("DEFAULT_EMAIL_SENDER_ADDRESS"); err != nil {
		return nil, err
	}
	if cfg.Services.WebAppURI, err = requireEnv("WEBAPP_URI"); err != nil {
		return nil, err
	}

	// Redis configuration (optional; leaderboards fall back to Postgres)
	cfg.Redis.Enabled = getEnvWithDefault("REDIS_ENABLED", "false") == "true"
	if cfg.Redis.Enabled {
		cfg.Redis.Host = getEnvWithDefault("REDIS_HOST", "localhost")
		redisPort := getEnvWithDefault("REDIS_PORT", "6379")
		cfg.Redis.Port, err = strconv.Atoi(redisPort)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_PORT: %w", err)
		}
		cfg.Redis.Password = getEnvWithDefault("REDIS_PASSWORD", "")
		redisDB := getEnvWithDefault("REDIS_DB", "0")
		cfg.Redis.DB, err = strconv.Atoi(redisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_DB: %w", err)
		}
	}

	// Verification polling configuration
	pollInterval := getEnvWithDefault("VERIFICATION_POLL_INTERVAL_SECONDS", "10")
	intervalSeconds, err := strconv.Atoi(pollInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to parse VERIFICATION_POLL_INTERVAL_SECONDS: %w", err)
	}
	cfg.Verification.PollInterval = time.Duration(intervalSeconds) * time.Second

	pollDeadline := getEnvWithDefault("VERIFICATION_POLL_DEADLINE_SECONDS", "180")
	deadlineSeconds, err := strconv.Atoi(pollDeadline)
	if err != nil {
		return nil, fmt.Errorf("failed to parse VERIFICATION_POLL_DEADLINE_SECONDS: %w", err)
	}
	cfg.Verification.PollDeadline = time.Duration(deadlineSeconds) * time.Second

	// Server configuration
	serverPort, err := requireEnv("SERVER_PORT")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.Username, c.Password, c.Host, c.Name)
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
