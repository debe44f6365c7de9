// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Source    SourceConfig    `mapstructure:"source"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to Postgres. Host/user/password/name/port are
// assembled into a DSN unless an explicit one is provided.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	Migrate  bool   `mapstructure:"migrate"`
}

// ConnString returns the configured DSN, building one from the discrete
// fields when db.dsn is unset.
func (d DBConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

// SourceConfig identifies the crawled listing site.
type SourceConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	DelaySeconds int    `mapstructure:"delay_seconds"`
}

// Delay converts the courtesy delay into a duration.
func (s SourceConfig) Delay() time.Duration {
	return time.Duration(s.DelaySeconds) * time.Second
}

// FetcherConfig selects and tunes the page fetcher implementation.
type FetcherConfig struct {
	// Driver is "headless" (chromedp) or "http" (colly).
	Driver        string `mapstructure:"driver"`
	UserAgent     string `mapstructure:"user_agent"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	ChromeBin     string `mapstructure:"chrome_bin"`
}

// NavTimeout converts the navigation timeout into a duration.
func (f FetcherConfig) NavTimeout() time.Duration {
	return time.Duration(f.NavTimeoutSec) * time.Second
}

// SchedulerConfig drives the daily crawl trigger.
type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	CronSpec     string `mapstructure:"cron_spec"`
	RunAtStartup bool   `mapstructure:"run_at_startup"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OKKY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "crawling")
	v.SetDefault("db.name", "crawling")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.migrate", true)
	v.SetDefault("source.base_url", "https://jobs.okky.kr/contract")
	v.SetDefault("source.delay_seconds", 1)
	v.SetDefault("fetcher.driver", "headless")
	v.SetDefault("fetcher.user_agent", "okky-jobs-bot/1.0")
	v.SetDefault("fetcher.nav_timeout_seconds", 20)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cron_spec", "0 12 * * *")
	v.SetDefault("scheduler.run_at_startup", false)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Source.DelaySeconds < 0 {
		return fmt.Errorf("source.delay_seconds must be >= 0")
	}
	switch c.Fetcher.Driver {
	case "headless", "http":
	default:
		return fmt.Errorf("fetcher.driver must be headless or http, got %q", c.Fetcher.Driver)
	}
	if c.Fetcher.NavTimeoutSec <= 0 {
		return fmt.Errorf("fetcher.nav_timeout_seconds must be > 0")
	}
	if c.Scheduler.Enabled && c.Scheduler.CronSpec == "" {
		return fmt.Errorf("scheduler.cron_spec must be set when the scheduler is enabled")
	}
	return nil
}
