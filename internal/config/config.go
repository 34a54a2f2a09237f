package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env                  string  `mapstructure:"env"`                    // current application environment (local, dev, production etc)
	JWTSecret            string  `mapstructure:"-"`                      // HS256 secret shared with the identity service
	LanguagesRefreshSpec string  `mapstructure:"languages_refresh_spec"` // cron spec for language catalog invalidation
	HTTP                 HTTP    `mapstructure:"http"`                   // HTTP server configuration section
	DB                   DB      `mapstructure:"database"`               // database configuration section
	Lesson               Lesson  `mapstructure:"lesson"`                 // session composition limits and defaults
	Log                  Log     `mapstructure:"log"`                    // log sink configuration
	Tracing              Tracing `mapstructure:"tracing"`                // tracing exporter configuration
}

// HTTP contains server parameters.
type HTTP struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RateLimit    RateLimit     `mapstructure:"rate_limit"`
}

// RateLimit bounds requests per client within a window.
type RateLimit struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// DB contains database-related configuration parameters.
type DB struct {
	URL              string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections   int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
	QueryTimeout     time.Duration `mapstructure:"query_timeout"`     // upper bound for one unit of work
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`      // postgres lock_timeout
	StatementTimeout time.Duration `mapstructure:"statement_timeout"` // postgres statement_timeout
	Retry            Retry         `mapstructure:"retry"`
}

// Retry configures how transient transaction failures are retried.
type Retry struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// Lesson holds session composition defaults and upper bounds.
type Lesson struct {
	DefaultTotalExercises int    `mapstructure:"default_total_exercises"`
	MaxTotalExercises     int    `mapstructure:"max_total_exercises"`
	DefaultMaxNewItems    int    `mapstructure:"default_max_new_items"`
	NativeLanguage        string `mapstructure:"native_language"`
	TargetLanguage        string `mapstructure:"target_language"`
}

// Log configures the optional rotated file sink. An empty File disables it.
type Log struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Tracing configures the jaeger exporter.
type Tracing struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Load reads configuration from ./config and environment variables.
func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom reads configuration from the given directory and environment variables.
func LoadFrom(dir string) (*Config, error) {
	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.JWTSecret = v.GetString("jwt_secret")
	if cfg.JWTSecret == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	cfg.DB.URL = v.GetString("database_url")
	if cfg.DB.URL == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	if cfg.Lesson.MaxTotalExercises < cfg.Lesson.DefaultTotalExercises {
		return nil, fmt.Errorf("lesson.max_total_exercises (%d) is below the default (%d)",
			cfg.Lesson.MaxTotalExercises, cfg.Lesson.DefaultTotalExercises)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("languages_refresh_spec", "@every 10m")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.rate_limit.max_requests", 120)
	v.SetDefault("http.rate_limit.window", "1m")

	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.query_timeout", "5s")
	v.SetDefault("database.lock_timeout", "2s")
	v.SetDefault("database.statement_timeout", "4s")
	v.SetDefault("database.retry.max_attempts", 3)
	v.SetDefault("database.retry.base_delay", "50ms")
	v.SetDefault("database.retry.max_delay", "1s")

	v.SetDefault("lesson.default_total_exercises", 10)
	v.SetDefault("lesson.max_total_exercises", 50)
	v.SetDefault("lesson.default_max_new_items", 4)
	v.SetDefault("lesson.native_language", "en")
	v.SetDefault("lesson.target_language", "es")

	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.collector_endpoint", "http://localhost:14268/api/traces")
}
