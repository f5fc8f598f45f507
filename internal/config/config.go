package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	API    APIConfig    `mapstructure:"api" yaml:"api" validate:"required"`
	Stream StreamConfig `mapstructure:"stream" yaml:"stream" validate:"required"`
	Log    LogConfig    `mapstructure:"log" yaml:"log" validate:"required"`
}

// APIConfig contains the settings used to reach the analysis server.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
}

// StreamConfig contains the live event subscription settings.
// They are captured once when the connector is built.
type StreamConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	AutoReconnect  bool          `mapstructure:"auto_reconnect" yaml:"auto_reconnect"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay" validate:"gt=0"`
	// ReconcileOnConnect polls the task list every time the stream reports
	// "connected" so events missed while offline are recovered.
	ReconcileOnConnect bool `mapstructure:"reconcile_on_connect" yaml:"reconcile_on_connect"`
}

// LogConfig contains structured logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=json text"`
}
