package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log      LogConfig      `mapstructure:"log" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Events   EventsConfig   `mapstructure:"events" validate:"required"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the PostgreSQL connection and pool settings.
// An empty URL means no database is configured.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"omitempty,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`

	// ConflictRetries is how often a transaction that hit a serialization
	// failure or deadlock is rerun. Zero surfaces the failure.
	ConflictRetries int `mapstructure:"conflict_retries" validate:"gte=0,lte=10"`
}

// EventsConfig contains the domain event publishing settings.
// An empty NATSURL disables publishing.
type EventsConfig struct {
	NATSURL       string `mapstructure:"nats_url" validate:"omitempty,url"`
	NATSToken     string `mapstructure:"nats_token"`
	SubjectPrefix string `mapstructure:"subject_prefix" validate:"required,excludesall=*>"`
}
