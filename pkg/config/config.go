// Package config loads service settings from an optional config file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "GRADFLOW"

const (
	DefaultPort           = 9091
	DefaultDatabaseURL    = "file://./data"
	DefaultUserDirectory  = "file://./users.yaml"
	DefaultEventBus       = "gochannel"
	DefaultIdentityHeader = "X-User-ID"
)

// Config holds the settings shared by the gradflow binaries.
type Config struct {
	Port            int    `mapstructure:"port"             validate:"min=1,max=65535"`
	DatabaseURL     string `mapstructure:"database_url"     validate:"required"`
	UserDirectory   string `mapstructure:"user_directory"   validate:"required"`
	EventBus        string `mapstructure:"event_bus"        validate:"oneof=gochannel kafka none"`
	KafkaBrokers    string `mapstructure:"kafka_brokers"`
	RulesFile       string `mapstructure:"rules_file"`
	FieldValidation string `mapstructure:"field_validation" validate:"oneof=enforce off"`
	IdentityHeader  string `mapstructure:"identity_header"  validate:"required"`
	LogLevel        string `mapstructure:"log_level"        validate:"oneof=debug info warn warning error"`
	Tracing         bool   `mapstructure:"tracing"`
}

// Keys lists every configuration key. Flags use the same names with dashes.
func Keys() []string {
	return []string{
		"port",
		"database_url",
		"user_directory",
		"event_bus",
		"kafka_brokers",
		"rules_file",
		"field_validation",
		"identity_header",
		"log_level",
		"tracing",
	}
}

// FlagName returns the command line flag bound to key.
func FlagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Load resolves the configuration. Overrides win over the environment, which wins
// over the file at path, which wins over the defaults. An empty path skips the file.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", DefaultPort)
	v.SetDefault("database_url", DefaultDatabaseURL)
	v.SetDefault("user_directory", DefaultUserDirectory)
	v.SetDefault("event_bus", DefaultEventBus)
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("rules_file", "")
	v.SetDefault("field_validation", "enforce")
	v.SetDefault("identity_header", DefaultIdentityHeader)
	v.SetDefault("log_level", "info")
	v.SetDefault("tracing", false)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.FieldValidation = strings.ToLower(cfg.FieldValidation)
	cfg.EventBus = strings.ToLower(cfg.EventBus)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid config: %w", err)
	}

	problems := make([]error, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		problems = append(problems, fmt.Errorf("%s: invalid value %v (%s %s)",
			fieldErr.Field(), fieldErr.Value(), fieldErr.Tag(), fieldErr.Param()))
	}

	return fmt.Errorf("invalid config: %w", errors.Join(problems...))
}
