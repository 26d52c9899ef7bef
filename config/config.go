package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/tarifario/price-tracker/internal/pricing"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Source    SourceConfig     `mapstructure:"source"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Database  DatabaseConfig   `mapstructure:"database"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	API       APIConfig        `mapstructure:"api"`
	Instances []InstanceConfig `mapstructure:"instances"`
	Active    ActiveConfig     `mapstructure:"active"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SourceConfig holds the upstream tariff table endpoints
type SourceConfig struct {
	RawBaseURL      string        `mapstructure:"raw_base_url"`
	APIBaseURL      string        `mapstructure:"api_base_url"`
	FilePath        string        `mapstructure:"file_path"`
	Timezone        string        `mapstructure:"timezone"`
	MemoryTTL       time.Duration `mapstructure:"memory_ttl"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

// CacheConfig holds the disk cache and refresh loop settings
type CacheConfig struct {
	Dir           string        `mapstructure:"dir"`
	RetentionDays int           `mapstructure:"retention_days"`
	ScanInterval  time.Duration `mapstructure:"scan_interval"`
	CutoffHour    int           `mapstructure:"cutoff_hour"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// DatabaseConfig holds database connection configuration. An empty URL
// disables the price archive.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RateLimitConfig holds outbound request pacing configuration
type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	MaxRetries        int `mapstructure:"max_retries"`
	InitialBackoffMs  int `mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int `mapstructure:"max_backoff_ms"`
	AttemptTimeoutMs  int `mapstructure:"attempt_timeout_ms"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// APIConfig holds the inbound API protection settings
type APIConfig struct {
	InternalKey       string  `mapstructure:"internal_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// InstanceConfig declares one tracked provider/tariff instance
type InstanceConfig struct {
	Provider string  `mapstructure:"provider"`
	Tariff   string  `mapstructure:"tariff"`
	VATRate  float64 `mapstructure:"vat_rate"`
}

// Key returns the canonical instance key.
func (i InstanceConfig) Key() string {
	return pricing.InstanceKey(i.Provider, i.Tariff)
}

// ActiveConfig holds the initial active selection
type ActiveConfig struct {
	Selection string `mapstructure:"selection"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// Load .env file
	if err := loadEnvFile(); err != nil {
		// .env is optional, log but don't fail
		log.Warn().Err(err).Msg("Warning: .env file not loaded")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvPrefix("PRICE_TRACKER")

	// Bind env keys for nested config
	bindEnvVars(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Validate checks the instance list against the tariff catalog and fills
// the default selection.
func (c *Config) Validate() error {
	for _, inst := range c.Instances {
		if inst.Provider == "" {
			return fmt.Errorf("instance with empty provider")
		}
		if !pricing.ValidTariff(inst.Tariff) {
			return fmt.Errorf("instance %s: unknown tariff code %q", inst.Provider, inst.Tariff)
		}
		if inst.VATRate < 0 || inst.VATRate > 1 {
			return fmt.Errorf("instance %s: vat_rate %v out of range [0,1]", inst.Provider, inst.VATRate)
		}
	}

	if c.Active.Selection == "" && len(c.Instances) > 0 {
		c.Active.Selection = c.Instances[0].Key()
	}
	return nil
}

// loadEnvFile loads a .env file from the usual locations
func loadEnvFile() error {
	envPaths := []string{".", "./config"}

	for _, path := range envPaths {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			if err := loadDotEnvFile(envFile); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads a .env file and sets environment variables
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			// Remove quotes if present
			value = strings.Trim(value, "\"'")
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")

	// Cache
	v.BindEnv("cache.dir", "CACHE_DIR")

	// API protection
	v.BindEnv("api.internal_key", "INTERNAL_API_KEY")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Source defaults
	v.SetDefault("source.raw_base_url", "https://raw.githubusercontent.com/tiagofelicia/tiagofelicia.github.io")
	v.SetDefault("source.api_base_url", "https://api.github.com/repos/tiagofelicia/tiagofelicia.github.io")
	v.SetDefault("source.file_path", "data/precos-horarios.csv")
	v.SetDefault("source.timezone", "Europe/Lisbon")
	v.SetDefault("source.memory_ttl", 1*time.Hour)
	v.SetDefault("source.download_timeout", 60*time.Second)

	// Cache defaults
	v.SetDefault("cache.dir", "./data/prices")
	v.SetDefault("cache.retention_days", 90)
	v.SetDefault("cache.scan_interval", 5*time.Minute)
	v.SetDefault("cache.cutoff_hour", 13)
	v.SetDefault("cache.sweep_interval", 12*time.Hour)

	// Database defaults
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_second", 2)
	v.SetDefault("rate_limit.max_retries", 2)
	v.SetDefault("rate_limit.initial_backoff_ms", 1000)
	v.SetDefault("rate_limit.max_backoff_ms", 30000)
	v.SetDefault("rate_limit.attempt_timeout_ms", 10000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	// API defaults
	v.SetDefault("api.requests_per_second", 10.0)
	v.SetDefault("api.burst", 20)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// GetDatabaseURL returns the database URL from config or environment
func GetDatabaseURL() string {
	if cfg := Get(); cfg != nil && cfg.Database.URL != "" {
		return cfg.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
