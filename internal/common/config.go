package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all client configuration.
type Config struct {
	API     APIConfig
	Parse   ParseConfig
	Poll    PollConfig
	History HistoryConfig
}

// APIConfig holds connection-related configuration.
type APIConfig struct {
	BaseURL       string
	UpstageAPIKey string
	OpenAIAPIKey  string
	Timeout       time.Duration
}

// ParseConfig holds default parsing options attached at submission time.
type ParseConfig struct {
	Language     string
	IncludeImage bool
	BatchSize    int
	TestPage     *int // page limit; nil means parse every page
}

// PollConfig holds job-polling configuration.
type PollConfig struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// HistoryConfig holds the local submission-history store configuration.
type HistoryConfig struct {
	DBPath string
}

// LoadConfig loads configuration from environment variables. Explicit values
// set by the caller afterwards take precedence over what the environment
// provided; the environment takes precedence over the built-in defaults.
func LoadConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:       getEnv("PARSER_API_URL", "http://localhost:9997"),
			UpstageAPIKey: getEnv("UPSTAGE_API_KEY", ""),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			Timeout:       getEnvAsDuration("PARSER_TIMEOUT", 60*time.Second),
		},
		Parse: ParseConfig{
			Language:     getEnv("PARSER_LANGUAGE", "Korean"),
			IncludeImage: getEnvAsBool("PARSER_INCLUDE_IMAGE", true),
			BatchSize:    getEnvAsInt("PARSER_BATCH_SIZE", 30),
			TestPage:     getEnvAsIntPtr("PARSER_TEST_PAGE"),
		},
		Poll: PollConfig{
			Interval: getEnvAsDuration("PARSER_POLL_INTERVAL", 2*time.Second),
			MaxWait:  getEnvAsDuration("PARSER_POLL_MAX_WAIT", 2*time.Minute),
		},
		History: HistoryConfig{
			DBPath: getEnv("PARSER_HISTORY_DB", "parser_history.db"),
		},
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return WrapError(ErrInvalidInput, "PARSER_API_URL is required")
	}
	if c.Parse.BatchSize <= 0 {
		return WrapError(ErrInvalidInput, "PARSER_BATCH_SIZE must be > 0")
	}
	if c.Poll.Interval <= 0 {
		return WrapError(ErrInvalidInput, "PARSER_POLL_INTERVAL must be > 0")
	}
	if c.Poll.MaxWait < c.Poll.Interval {
		return WrapError(ErrInvalidInput, "PARSER_POLL_MAX_WAIT must be >= PARSER_POLL_INTERVAL")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsIntPtr(key string) *int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return &intVal
		}
	}
	return nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
