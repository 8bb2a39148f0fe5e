package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Payments  PaymentsConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
}

// Supported database drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	URL      string
	MongoURI string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL     string
	Enabled bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	Environment     string
	FrontendURL     string
	BodyLimitBytes  int64
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// IsDevelopment reports whether error details may be exposed to clients
func (s ServerConfig) IsDevelopment() bool {
	return strings.EqualFold(s.Environment, "development")
}

// PaymentsConfig holds payment listing and summary settings
type PaymentsConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	SummaryCacheTTL time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string
	Format       string // "json" or "text"
	ScalyrFormat bool   // Enable Scalyr-compatible JSON format
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled           bool
	JaegerURL         string
	PrometheusEnabled bool
	PrometheusPort    int
	ServiceName       string
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	setDefaults()

	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.birthday-payments")
	viper.AddConfigPath("/etc/birthday-payments")

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found; this is OK if we have env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	redisURL := getString("redis_url", "")

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getString("database_driver", DriverMongo)),
			URL:      getString("database_url", ""),
			MongoURI: getString("mongodb_uri", "mongodb://localhost:27017/birthday-app"),
		},
		Redis: RedisConfig{
			URL:     redisURL,
			Enabled: redisURL != "",
		},
		Server: ServerConfig{
			Port:            getInt("port", 5000),
			Host:            getString("http_server_host", "0.0.0.0"),
			Environment:     getString("node_env", "production"),
			FrontendURL:     getString("frontend_url", "http://localhost:3000"),
			BodyLimitBytes:  int64(getInt("body_limit_bytes", 10<<20)),
			RateLimitMax:    getInt("rate_limit_max", 100),
			RateLimitWindow: GetDuration("rate_limit_window", 15*time.Minute),
		},
		Payments: PaymentsConfig{
			DefaultPageSize: getInt("default_page_size", 20),
			MaxPageSize:     getInt("max_page_size", 100),
			SummaryCacheTTL: GetDuration("summary_cache_ttl", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:        getString("log_level", "INFO"),
			Format:       getString("log_format", "json"),
			ScalyrFormat: getBool("log_scalyr_format", true),
		},
		Telemetry: TelemetryConfig{
			Enabled:           getBool("telemetry_enabled", true),
			JaegerURL:         getString("jaeger_url", ""),
			PrometheusEnabled: getBool("prometheus_enabled", true),
			PrometheusPort:    getInt("prometheus_port", 9090),
			ServiceName:       getString("service_name", "birthday-payments"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("database_driver", DriverMongo)
	viper.SetDefault("mongodb_uri", "mongodb://localhost:27017/birthday-app")
	viper.SetDefault("port", 5000)
	viper.SetDefault("http_server_host", "0.0.0.0")
	viper.SetDefault("node_env", "production")
	viper.SetDefault("frontend_url", "http://localhost:3000")
	viper.SetDefault("body_limit_bytes", 10<<20)
	viper.SetDefault("rate_limit_max", 100)
	viper.SetDefault("rate_limit_window", 15*time.Minute)
	viper.SetDefault("default_page_size", 20)
	viper.SetDefault("max_page_size", 100)
	viper.SetDefault("summary_cache_ttl", 30*time.Second)
	viper.SetDefault("log_level", "INFO")
	viper.SetDefault("log_format", "json")
	viper.SetDefault("log_scalyr_format", true)
	viper.SetDefault("telemetry_enabled", true)
	viper.SetDefault("prometheus_enabled", true)
	viper.SetDefault("prometheus_port", 9090)
	viper.SetDefault("service_name", "birthday-payments")
}

func getString(key, defaultValue string) string {
	if val := os.Getenv(toEnvKey(key)); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if val := os.Getenv(toEnvKey(key)); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if val := os.Getenv(toEnvKey(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	return defaultValue
}

// toEnvKey converts snake_case and kebab-case keys to UPPER_SNAKE_CASE
func toEnvKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("mongodb_uri is required for the mongo driver")
		}
	case DriverPostgres, DriverSQLite:
		if c.Database.URL == "" {
			return fmt.Errorf("database_url is required for the %s driver", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database_driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Payments.DefaultPageSize <= 0 {
		return fmt.Errorf("default_page_size must be positive")
	}
	if c.Payments.MaxPageSize < c.Payments.DefaultPageSize {
		return fmt.Errorf("max_page_size must be at least default_page_size")
	}
	if c.Server.RateLimitMax < 0 {
		return fmt.Errorf("rate_limit_max must not be negative")
	}
	return nil
}

// GetDuration returns a duration from config key, with default
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(toEnvKey(key)); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	if viper.IsSet(key) {
		return viper.GetDuration(key)
	}
	return defaultValue
}
