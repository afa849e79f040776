package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all tearsheet configuration
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Report  ReportConfig  `mapstructure:"report"`
	Server  ServerConfig  `mapstructure:"server"`
	History HistoryConfig `mapstructure:"history"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

// ReportConfig contains series derivation and rendering settings
type ReportConfig struct {
	// PeriodsPerYear is the sampling-frequency constant used for
	// annualization. It is configured, never inferred from the data;
	// changing it changes every reported ratio. Default assumes hourly
	// samples (365.25 * 24).
	PeriodsPerYear    float64 `mapstructure:"periods_per_year"`
	RollingWindowDays int     `mapstructure:"rolling_window_days"`
	Output            string  `mapstructure:"output"`
	Format            string  `mapstructure:"format"` // "html" or "json"
}

// ServerConfig contains serve-mode HTTP settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// HistoryConfig contains run-history persistence settings
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("tearsheet")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("TEARSHEET")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tearsheet")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("report.periods_per_year", 365.25*24) // hourly samples
	v.SetDefault("report.rolling_window_days", 30)
	v.SetDefault("report.output", "tearsheet.html")
	v.SetDefault("report.format", "html")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "tearsheet-history.db")
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Report.PeriodsPerYear <= 0 {
		return fmt.Errorf("report.periods_per_year must be positive, got %g", c.Report.PeriodsPerYear)
	}
	if c.Report.RollingWindowDays <= 0 {
		return fmt.Errorf("report.rolling_window_days must be positive, got %d", c.Report.RollingWindowDays)
	}
	switch c.Report.Format {
	case "html", "json":
	default:
		return fmt.Errorf("report.format must be html or json, got %q", c.Report.Format)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// RollingWindow converts the configured calendar-day window to periods at
// the configured sampling frequency.
func (c *ReportConfig) RollingWindow() int {
	return int(float64(c.RollingWindowDays) * c.PeriodsPerYear / 365.25)
}

// Addr returns the serve-mode listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
