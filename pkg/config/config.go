package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// LLM provider
	ProviderBaseURL     string
	ProviderAPIKey      string
	ProviderModel       string
	ProviderTimeout     time.Duration
	ProviderMaxRetries  int
	ProviderBaseDelay   time.Duration
	ProviderEnabled     bool
	ReasoningSuppressed bool

	// Generation defaults
	Temperature float64
	MaxTokens   int

	// Negotiation
	MaxRounds           int
	MinRounds           int
	ParallelSellerLimit int
	DecisionPolicy      string // "score" or "lowest_price"
	Seed                *int64 // nil = nondeterministic

	// Generate cache
	GenerateCacheEnabled bool
	GenerateCacheTTL     time.Duration

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Provider defaults: a local OpenAI-compatible endpoint
		ProviderBaseURL:     getEnvOrDefault("PROVIDER_BASE_URL", "http://localhost:11434"),
		ProviderAPIKey:      os.Getenv("PROVIDER_API_KEY"),
		ProviderModel:       getEnvOrDefault("PROVIDER_MODEL", "qwen2.5:14b"),
		ProviderTimeout:     getDurationOrDefault("PROVIDER_TIMEOUT_MS", 60*time.Second),
		ProviderMaxRetries:  getIntOrDefault("PROVIDER_MAX_RETRIES", 3),
		ProviderBaseDelay:   getDurationOrDefault("PROVIDER_BASE_DELAY_MS", 500*time.Millisecond),
		ProviderEnabled:     getBoolOrDefault("PROVIDER_ENABLED", true),
		ReasoningSuppressed: getBoolOrDefault("REASONING_SUPPRESSION", true),

		// Generation defaults
		Temperature: getFloat64OrDefault("TEMPERATURE", 0.0),
		MaxTokens:   getIntOrDefault("MAX_TOKENS", 256),

		// Negotiation defaults
		MaxRounds:           getIntOrDefault("MAX_NEGOTIATION_ROUNDS", 10),
		MinRounds:           getIntOrDefault("MIN_NEGOTIATION_ROUNDS", 0),
		ParallelSellerLimit: getIntOrDefault("PARALLEL_SELLER_LIMIT", 1),
		DecisionPolicy:      getEnvOrDefault("DECISION_POLICY", "score"),
		Seed:                getSeed("SEED"),

		// Generate cache defaults
		GenerateCacheEnabled: getBoolOrDefault("GENERATE_CACHE_ENABLED", false),
		GenerateCacheTTL:     getDurationOrDefault("GENERATE_CACHE_TTL_MS", 10*time.Minute),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "negotiator"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "negotiator123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "negotiator"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.ProviderBaseURL == "" {
		return fmt.Errorf("PROVIDER_BASE_URL cannot be empty")
	}

	if c.MaxRounds <= 0 {
		return fmt.Errorf("MAX_NEGOTIATION_ROUNDS must be positive, got %d", c.MaxRounds)
	}

	if c.MinRounds < 0 || c.MinRounds > c.MaxRounds {
		return fmt.Errorf("MIN_NEGOTIATION_ROUNDS must be in [0, %d], got %d", c.MaxRounds, c.MinRounds)
	}

	if c.ParallelSellerLimit < 1 {
		return fmt.Errorf("PARALLEL_SELLER_LIMIT must be at least 1, got %d", c.ParallelSellerLimit)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be in [0, 2], got %f", c.Temperature)
	}

	if c.DecisionPolicy != "score" && c.DecisionPolicy != "lowest_price" {
		return fmt.Errorf("DECISION_POLICY must be 'score' or 'lowest_price', got %q", c.DecisionPolicy)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// getDurationOrDefault reads either a Go duration string ("30s") or a bare
// millisecond count ("30000"), matching the *_MS option names.
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getSeed reads an optional int64 seed; absent or malformed means
// nondeterministic.
func getSeed(key string) *int64 {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	seed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil
	}

	return &seed
}
