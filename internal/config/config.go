package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	customerrors "github.com/axellelanca/magiccode/internal/errors"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML/JSON keys to Go struct fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port                int    `mapstructure:"port"`     // HTTP server port (default: 8080)
		BaseURL             string `mapstructure:"base_url"` // Public base URL used to build asset redirects; empty means request host
		ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	} `mapstructure:"server"`

	// Database configuration section for SQLite settings
	Database struct {
		Name string `mapstructure:"name"` // SQLite database file name
	} `mapstructure:"database"`

	// Storage of uploaded media files
	Storage struct {
		UploadDir   string `mapstructure:"upload_dir"`
		MaxUploadMB int64  `mapstructure:"max_upload_mb"`
	} `mapstructure:"storage"`

	// Cleanup configures asynchronous asset removal and the orphan sweeper
	Cleanup struct {
		WorkerCount          int `mapstructure:"worker_count"`
		BufferSize           int `mapstructure:"buffer_size"`
		SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
		GraceMinutes         int `mapstructure:"grace_minutes"`
	} `mapstructure:"cleanup"`

	// Cache for public code resolution; size 0 disables it
	Cache struct {
		Size       int `mapstructure:"size"`
		TTLSeconds int `mapstructure:"ttl_seconds"`
	} `mapstructure:"cache"`

	Security struct {
		JWTSecret     string `mapstructure:"jwt_secret"`
		IDSecret      string `mapstructure:"id_secret"` // Key material for admin-facing identifier tokens
		TokenTTLHours int    `mapstructure:"token_ttl_hours"`
	} `mapstructure:"security"`

	Admin struct {
		AccountsPerPage int `mapstructure:"accounts_per_page"`
		RecordsPerPage  int `mapstructure:"records_per_page"`
	} `mapstructure:"admin"`

	Log struct {
		Level string `mapstructure:"level"`
		Env   string `mapstructure:"env"` // "development" switches to console output
	} `mapstructure:"log"`
}

// MaxUploadBytes is the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Storage.MaxUploadMB * 1024 * 1024
}

// CacheTTL is the lifetime of a cached resolution.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// TokenTTL is the lifetime of issued bearer tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Security.TokenTTLHours) * time.Hour
}

// LoadConfig loads the application configuration using Viper.
// An optional .env file is loaded first; environment variables override
// ./configs/config.yaml, which overrides the defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}
	return load("./configs")
}

func load(paths ...string) (*Config, error) {
	v := viper.New()

	// Replace dots with underscores in environment variable names
	// e.g., "server.port" becomes "SERVER_PORT"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Info().Msg("Config file not found, using default values")
		} else {
			return nil, customerrors.ErrConfigLoad{Path: v.ConfigFileUsed(), Reason: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Name).
		Str("upload_dir", cfg.Storage.UploadDir).
		Int("cleanup_workers", cfg.Cleanup.WorkerCount).
		Int("sweep_interval_min", cfg.Cleanup.SweepIntervalMinutes).
		Msg("Configuration loaded")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 60)
	v.SetDefault("database.name", "magic_codes.db")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.max_upload_mb", 50)
	v.SetDefault("cleanup.worker_count", 2)
	v.SetDefault("cleanup.buffer_size", 100)
	v.SetDefault("cleanup.sweep_interval_minutes", 60)
	v.SetDefault("cleanup.grace_minutes", 30)
	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.ttl_seconds", 30)
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.id_secret", "")
	v.SetDefault("security.token_ttl_hours", 24*30)
	v.SetDefault("admin.accounts_per_page", 10)
	v.SetDefault("admin.records_per_page", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "production")
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Storage.UploadDir == "" {
		return errors.New("storage.upload_dir is required")
	}
	if c.Storage.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid storage.max_upload_mb %d", c.Storage.MaxUploadMB)
	}
	if c.Cleanup.WorkerCount <= 0 {
		return fmt.Errorf("invalid cleanup.worker_count %d", c.Cleanup.WorkerCount)
	}
	return nil
}
