package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalidConfiguration is returned when loaded settings fail validation
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Cache      CacheConfig
	Enrichment EnrichmentConfig
	Matching   MatchingConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type       string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL   string        `mapstructure:"redis_url"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"` // memory only
}

// EnrichmentConfig holds the entity-extraction service configuration
type EnrichmentConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Provider        string        `mapstructure:"provider"`
	BatchSize       int           `mapstructure:"batch_size"`
	RequestsPerHour int           `mapstructure:"requests_per_hour"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// MatchingConfig holds matching and analysis tuning
type MatchingConfig struct {
	Strategy           string  `mapstructure:"strategy"` // "tokens" or "specs"
	BrandWeight        float64 `mapstructure:"brand_weight"`
	ModelWeight        float64 `mapstructure:"model_weight"`
	TokenWeight        float64 `mapstructure:"token_weight"`
	DistributionBins   int     `mapstructure:"distribution_bins"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per second
	Burst int `mapstructure:"burst"`
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/serpprice/")

	// SERPPRICE_SERVER_PORT -> server.port
	v.SetEnvPrefix("SERPPRICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env without overriding variables already set.
// A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values. Every key gets a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "720h") // 30 days
	v.SetDefault("cache.max_entries", 10000)

	// Enrichment defaults
	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.base_url", "")
	v.SetDefault("enrichment.api_key", "")
	v.SetDefault("enrichment.provider", "http")
	v.SetDefault("enrichment.batch_size", 15)
	v.SetDefault("enrichment.requests_per_hour", 1000)
	v.SetDefault("enrichment.timeout", "60s")

	// Matching defaults
	v.SetDefault("matching.strategy", "tokens")
	v.SetDefault("matching.brand_weight", 0.25)
	v.SetDefault("matching.model_weight", 0.35)
	v.SetDefault("matching.token_weight", 0.40)
	v.SetDefault("matching.distribution_bins", 5)
	v.SetDefault("matching.enable_debug_logging", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 10)
	v.SetDefault("ratelimit.burst", 20)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Enrichment.Enabled {
		if config.Enrichment.BaseURL == "" {
			return fmt.Errorf("enrichment base URL is required when enrichment is enabled (set SERPPRICE_ENRICHMENT_BASE_URL)")
		}
		if config.Enrichment.APIKey == "" {
			return fmt.Errorf("enrichment API key is required when enrichment is enabled (set SERPPRICE_ENRICHMENT_API_KEY)")
		}
	}

	m := config.Matching
	if m.Strategy != "tokens" && m.Strategy != "specs" {
		return fmt.Errorf("matching strategy must be 'tokens' or 'specs', got: %s", m.Strategy)
	}
	if m.BrandWeight < 0 || m.ModelWeight < 0 || m.TokenWeight < 0 {
		return fmt.Errorf("matching weights must not be negative")
	}
	if m.BrandWeight+m.ModelWeight+m.TokenWeight <= 0 {
		return fmt.Errorf("matching weights must not all be zero")
	}

	if config.RateLimit.PerIP <= 0 || config.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit per_ip and burst must be positive")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
