package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/blastkit/blast/pkg/bus"
	"github.com/blastkit/blast/pkg/files"
	"github.com/blastkit/blast/pkg/staging"
	"github.com/blastkit/blast/pkg/store"
)

// Config is the static configuration of the blast worker.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (BLAST_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the relational store (SQLite or PostgreSQL)
	// holding requests, messages, sessions, files and the outbox.
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Redis configures the staging store for bulk imports.
	Redis staging.RedisConfig `mapstructure:"redis" yaml:"redis"`

	// Broker configures the event bus used by the broker dispatch strategy.
	Broker BrokerConfig `mapstructure:"broker" yaml:"broker"`

	// Storage configures where uploaded files live.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Outbox configures the dispatcher.
	Outbox OutboxConfig `mapstructure:"outbox" yaml:"outbox"`

	// Worker configures job scheduling.
	Worker WorkerConfig `mapstructure:"worker" yaml:"worker"`

	// Messengers configures the network adapters.
	Messengers MessengersConfig `mapstructure:"messengers" yaml:"messengers"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// BrokerConfig selects the event bus driver.
type BrokerConfig struct {
	// Driver is the bus implementation
	// Valid values: none, rabbitmq
	Driver string `mapstructure:"driver" validate:"required,oneof=none rabbitmq" yaml:"driver"`

	// RabbitMQ holds the connection settings used when Driver is "rabbitmq".
	RabbitMQ bus.RabbitMQConfig `mapstructure:"rabbitmq" yaml:"rabbitmq"`
}

// StorageConfig selects the file service backend.
type StorageConfig struct {
	// Backend is the file service implementation
	// Valid values: local, s3
	Backend string `mapstructure:"backend" validate:"required,oneof=local s3" yaml:"backend"`

	Local files.LocalConfig `mapstructure:"local" yaml:"local"`
	S3    files.S3Config    `mapstructure:"s3" yaml:"s3"`
}

// OutboxConfig configures the outbox dispatcher.
type OutboxConfig struct {
	// DispatchStrategy selects how claimed events run
	// Valid values: direct (in-process), broker (publish to the event bus)
	DispatchStrategy string `mapstructure:"dispatch_strategy" validate:"required,oneof=direct broker" yaml:"dispatch_strategy"`

	// BatchSize is the number of events claimed per tick.
	// Default: 50
	BatchSize int `mapstructure:"batch_size" validate:"omitempty,gt=0" yaml:"batch_size"`
}

// WorkerConfig configures job scheduling.
type WorkerConfig struct {
	// DispatchInterval is how often the outbox dispatcher ticks.
	// Default: 2s
	DispatchInterval time.Duration `mapstructure:"dispatch_interval" validate:"omitempty,gt=0" yaml:"dispatch_interval"`
}

// MessengersConfig configures the network adapters.
type MessengersConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Whatsapp WhatsappConfig `mapstructure:"whatsapp" yaml:"whatsapp"`
}

// TelegramConfig configures the Telegram adapter. The MTProto client itself
// is a compile-time binding; these are its credentials.
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	APIID   int    `mapstructure:"api_id" yaml:"api_id"`
	APIHash string `mapstructure:"api_hash" yaml:"api_hash,omitempty"`
}

// WhatsappConfig configures the WhatsApp adapter (Evolution API).
type WhatsappConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// configPath may be empty to use the default location; a missing file falls
// back to defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the file
// the user pointed at does not exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  blast init\n\n"+
				"Or specify a custom config file:\n"+
				"  blast <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  blast init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may contain broker and API credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the BLAST_ prefix with underscores.
	// Example: BLAST_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("BLAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		// os.PathError when an explicit config file does not exist
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "blast")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "blast")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
