// Package config loads service configuration.
//
// Configuration is environment-first (HOSPICORE_* variables), with an
// optional YAML file for local development. Every value has a sane default so
// a bare `HOSPICORE_DB_DSN=... server` boots.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration tree.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	Log     LogConfig     `mapstructure:"log"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Stock   StockConfig   `mapstructure:"stock"`
	Cash    CashConfig    `mapstructure:"cash"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// AppConfig holds deployment-wide application settings.
type AppConfig struct {
	Env string `mapstructure:"env"`

	// Timezone is the operational local time of the deployment. All business
	// dates (movement dates, handover dates) are taken in this zone.
	Timezone string `mapstructure:"timezone"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DBConfig holds PostgreSQL settings.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// StockConfig holds stock engine policy.
type StockConfig struct {
	// SkipMissingProducts tolerates decrement lines for products without an
	// inventory row instead of failing the whole operation.
	SkipMissingProducts bool `mapstructure:"skip_missing_products"`
}

// CashConfig holds cash ledger settings.
type CashConfig struct {
	// ClassifierExpression is the CEL predicate used to suggest the
	// is_cash_equivalent flag for newly registered payment methods.
	ClassifierExpression string `mapstructure:"classifier_expression"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from the optional file path and the environment.
// Environment variables win: HOSPICORE_DB_DSN overrides db.dsn.
func Load(path string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("HOSPICORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.timezone", "Africa/Douala")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("db.max_conns", 25)
	v.SetDefault("db.min_conns", 5)
	v.SetDefault("db.max_conn_lifetime", time.Hour)
	v.SetDefault("db.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("stock.skip_missing_products", false)

	v.SetDefault("cash.classifier_expression",
		`code == "CASH" || name.contains("cash") || name.contains("espèces")`)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func (c Config) validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required (HOSPICORE_DB_DSN)")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	return nil
}

// Location returns the operational timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}
