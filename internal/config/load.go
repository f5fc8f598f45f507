package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TICKERWATCH_API_BASE_URL.
const EnvPrefix = "TICKERWATCH"

// Default values applied before files and environment are read.
var defaults = map[string]interface{}{
	"api.base_url":                "http://localhost:8000",
	"api.timeout":                 "30s",
	"stream.enabled":              true,
	"stream.auto_reconnect":       true,
	"stream.reconnect_delay":      "3s",
	"stream.reconcile_on_connect": true,
	"log.level":                   "info",
	"log.format":                  "json",
}

// Load reads configuration from environment variables on top of defaults.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but also reads the YAML file at path when path
// is not empty. Environment variables take precedence over values from the file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind every known key so Unmarshal sees env overrides
	for key := range defaults {
		envVar := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks a Config against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
