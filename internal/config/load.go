package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. FARECARD_DATABASE_URL.
const EnvPrefix = "FARECARD"

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("configuration validation failed")

type loadOptions struct {
	configFile string
	flags      *pflag.FlagSet
}

// Option customizes Load.
type Option func(*loadOptions)

// WithConfigFile reads the given YAML file. An empty path is ignored.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) {
		o.configFile = path
	}
}

// WithFlags binds command-line flags whose names match configuration keys
// (for example "database.url"). Only flags that were set override other sources.
func WithFlags(flags *pflag.FlagSet) Option {
	return func(o *loadOptions) {
		o.flags = flags
	}
}

// Load configuration from defaults, an optional config file, environment
// variables and flags. Returns a populated Config struct or an error if
// loading/validation fails.
func Load(opts ...Option) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	setDefaults(v)

	if o.configFile != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", o.configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about; keys without a
	// default must be bound explicitly.
	for _, key := range []string{"database.url", "events.nats_url", "events.nats_token"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	if o.flags != nil {
		if err := v.BindPFlags(o.flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.migrate_on_start", false)
	v.SetDefault("database.conflict_retries", 0)
	v.SetDefault("events.subject_prefix", "farecard")
}
