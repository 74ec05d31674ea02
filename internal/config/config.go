// Package config provides configuration management for guidarr using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort         = 8080
	defaultServerTimeout      = 30 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultMaxOpenConns       = 25
	defaultMaxIdleConns       = 10
	defaultConnMaxIdleTime    = 30 * time.Minute
	defaultIconRetentionDays  = 30
	defaultMaxIconSizeBytes   = 5 * 1024 * 1024 // 5MB
	defaultRefreshInterval    = 6 * time.Hour
	defaultRetentionWindow    = 48 * time.Hour
	defaultMaxResponseSize    = 100 * 1024 * 1024 // 100MB
	defaultTimeoutShort       = 15 * time.Second
	defaultTimeoutExtended    = 60 * time.Second
	defaultRetryAttempts      = 3
	defaultRetryDelay         = 5 * time.Second
	defaultMaxConcurrent      = 3
	defaultIconConcurrency    = 10
	defaultIconTimeout        = 30 * time.Second
	defaultIconRetryAttempts  = 3
	defaultIconCircuitBreaker = "icon_fetch"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Epg      EpgConfig      `mapstructure:"epg"`
	Icons    IconsConfig    `mapstructure:"icons"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	BaseDir       string        `mapstructure:"base_dir"`
	IconDir       string        `mapstructure:"icon_dir"`
	TempDir       string        `mapstructure:"temp_dir"`
	IconRetention time.Duration `mapstructure:"icon_retention"`
	// MaxIconSize is the maximum allowed size for cached icon files.
	// Supports human-readable values like "5MB", "1GB", or raw byte counts.
	MaxIconSize ByteSize `mapstructure:"max_icon_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// EpgConfig holds EPG cache and refresh configuration.
type EpgConfig struct {
	// RefreshInterval is the default cache TTL. A source's own
	// refresh_interval overrides this per source.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	// RetentionWindow bounds cached programmes to
	// [today 00:00 UTC, today 00:00 UTC + window).
	RetentionWindow time.Duration `mapstructure:"retention_window"`
	AutoRefresh     bool          `mapstructure:"auto_refresh"`
	// MaxResponseSize caps downloaded EPG documents.
	// Supports human-readable values like "100MB" or raw byte counts.
	MaxResponseSize ByteSize      `mapstructure:"max_response_size"`
	TimeoutShort    time.Duration `mapstructure:"timeout_short"`    // auth probes
	TimeoutExtended time.Duration `mapstructure:"timeout_extended"` // EPG downloads
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"` // concurrent source refreshes
}

// IconsConfig holds channel icon caching configuration.
type IconsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Concurrency    int           `mapstructure:"concurrency"`     // Number of concurrent icon downloads (default 10)
	Timeout        time.Duration `mapstructure:"timeout"`         // Timeout for individual icon downloads (default 30s)
	RetryAttempts  int           `mapstructure:"retry_attempts"`  // Number of retry attempts for failed icon downloads (default 3)
	CircuitBreaker string        `mapstructure:"circuit_breaker"` // Circuit breaker namespace for icons (default "icon_fetch")
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with GUIDARR_ and use underscores for nesting.
// Example: GUIDARR_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/guidarr")
		v.AddConfigPath("$HOME/.guidarr")
	}

	// Environment variable settings
	v.SetEnvPrefix("GUIDARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "guidarr.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.icon_dir", "icons")
	v.SetDefault("storage.temp_dir", "temp")
	v.SetDefault("storage.icon_retention", defaultIconRetentionDays*24*time.Hour)
	v.SetDefault("storage.max_icon_size", defaultMaxIconSizeBytes)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// EPG defaults
	v.SetDefault("epg.refresh_interval", defaultRefreshInterval)
	v.SetDefault("epg.retention_window", defaultRetentionWindow)
	v.SetDefault("epg.auto_refresh", true)
	v.SetDefault("epg.max_response_size", defaultMaxResponseSize)
	v.SetDefault("epg.timeout_short", defaultTimeoutShort)
	v.SetDefault("epg.timeout_extended", defaultTimeoutExtended)
	v.SetDefault("epg.retry_attempts", defaultRetryAttempts)
	v.SetDefault("epg.retry_delay", defaultRetryDelay)
	v.SetDefault("epg.max_concurrent", defaultMaxConcurrent)

	// Icons defaults
	v.SetDefault("icons.enabled", true)
	v.SetDefault("icons.concurrency", defaultIconConcurrency)
	v.SetDefault("icons.timeout", defaultIconTimeout)
	v.SetDefault("icons.retry_attempts", defaultIconRetryAttempts)
	v.SetDefault("icons.circuit_breaker", defaultIconCircuitBreaker)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	// Database validation
	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	validDBLogLevels := map[string]bool{"silent": true, "error": true, "warn": true, "info": true}
	if !validDBLogLevels[c.Database.LogLevel] {
		return fmt.Errorf("database.log_level must be one of: silent, error, warn, info")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns must not be negative")
	}

	// Storage validation
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// EPG validation
	if c.Epg.RefreshInterval <= 0 {
		return fmt.Errorf("epg.refresh_interval must be positive")
	}
	if c.Epg.RetentionWindow <= 0 {
		return fmt.Errorf("epg.retention_window must be positive")
	}
	if c.Epg.MaxResponseSize < 1 {
		return fmt.Errorf("epg.max_response_size must be at least 1 byte")
	}
	if c.Epg.MaxConcurrent < 1 || c.Epg.MaxConcurrent > 100 {
		return fmt.Errorf("epg.max_concurrent must be between 1 and 100")
	}
	if c.Epg.RetryAttempts < 0 {
		return fmt.Errorf("epg.retry_attempts must not be negative")
	}

	// Icons validation
	if c.Icons.Concurrency < 1 || c.Icons.Concurrency > 100 {
		return fmt.Errorf("icons.concurrency must be between 1 and 100")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IconPath returns the full path to the icon cache directory.
func (c *StorageConfig) IconPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.IconDir)
}

// TempPath returns the full path to the temp directory.
func (c *StorageConfig) TempPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.TempDir)
}
