package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"strategy-alerts/internal/logging"
)

// Database drivers understood by the storage layer.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig selects and tunes the record store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// HTTPConfig covers the webhook and query listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	GinMode         string        `mapstructure:"gin_mode"`
}

// ChartConfig holds defaults for chart queries and rendering.
type ChartConfig struct {
	Timezone       string        `mapstructure:"timezone"`
	DefaultMode    string        `mapstructure:"default_mode"`
	AggregateAfter time.Duration `mapstructure:"aggregate_after"`
	Multiplier     float64       `mapstructure:"multiplier"`
	Delta          float64       `mapstructure:"delta"`
	FeePerTrade    float64       `mapstructure:"fee_per_trade"`
	FeePerUnit     float64       `mapstructure:"fee_per_unit"`
	Width          int           `mapstructure:"width"`
	Height         int           `mapstructure:"height"`
}

// AlertingConfig controls forwarding of ingested alerts.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// MetricsConfig toggles the Prometheus endpoint and gauge refresh cadence.
type MetricsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxRecords int `mapstructure:"max_records"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ALERTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "alertdesk")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/alerts.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.max_body_bytes", int64(1<<20))
	v.SetDefault("http.gin_mode", "release")

	v.SetDefault("chart.timezone", "UTC")
	v.SetDefault("chart.default_mode", "raw")
	v.SetDefault("chart.aggregate_after", "744h")
	v.SetDefault("chart.multiplier", 1.0)
	v.SetDefault("chart.delta", 1.0)
	v.SetDefault("chart.fee_per_trade", 0.0)
	v.SetDefault("chart.fee_per_unit", 0.0)
	v.SetDefault("chart.width", 1280)
	v.SetDefault("chart.height", 720)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.timeout", "5s")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.refresh_interval", "1m")

	v.SetDefault("export.max_records", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of postgres, sqlite, memory; got %q", c.Database.Driver)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if _, err := time.LoadLocation(c.Chart.Timezone); err != nil {
		return fmt.Errorf("chart.timezone: %w", err)
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("chart.width and chart.height must be greater than zero")
	}
	if c.Chart.AggregateAfter < 0 {
		return fmt.Errorf("chart.aggregate_after cannot be negative")
	}
	if c.Chart.FeePerTrade < 0 || c.Chart.FeePerUnit < 0 {
		return fmt.Errorf("chart fees cannot be negative")
	}
	if c.Export.MaxRecords <= 0 {
		return fmt.Errorf("export.max_records must be greater than zero")
	}
	if c.Metrics.Enabled && c.Metrics.RefreshInterval <= 0 {
		return fmt.Errorf("metrics.refresh_interval must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// Location resolves chart.timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Chart.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResolveMaxRecords returns either the CLI override or config default.
func (c *Config) ResolveMaxRecords(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxRecords
}
