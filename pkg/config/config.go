package config

import (
	"tollgate-hq/tollgate/pkg/meter"
)

// Config is the complete application configuration.
type Config struct {
	// Budget applies to every user without an override.
	Budget meter.BudgetConfig `yaml:"budget"`

	// Overrides maps user IDs to user-specific budgets.
	Overrides map[string]meter.BudgetConfig `yaml:"overrides"`

	// Pricing configures the provider pricing table.
	Pricing PricingConfig `yaml:"pricing"`

	// History configures the in-memory usage history.
	History HistoryConfig `yaml:"history"`

	// Retention configures scheduled pruning of aged state.
	Retention RetentionConfig `yaml:"retention"`

	// Storage configures durable usage-record persistence.
	Storage StorageConfig `yaml:"storage"`

	// Telemetry configures logging.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PricingConfig configures the provider pricing table.
type PricingConfig struct {
	// FilePath points to a YAML pricing file. Empty uses the built-in
	// defaults only.
	FilePath string `yaml:"file_path"`

	// Watch reloads the pricing file automatically when it changes.
	Watch bool `yaml:"watch"`

	// DefaultRatePerToken prices tokens for unknown providers, USD.
	DefaultRatePerToken float64 `yaml:"default_rate_per_token"`
}

// HistoryConfig configures the in-memory usage history.
type HistoryConfig struct {
	// MaxRecords bounds the history ring. Exceeding it trims the ring
	// down to half this value.
	MaxRecords int `yaml:"max_records"`
}

// RetentionConfig configures scheduled pruning.
type RetentionConfig struct {
	// RecordRetentionDays is how long usage records are kept.
	// 0 keeps them forever.
	RecordRetentionDays int `yaml:"record_retention_days"`

	// AlertRetentionDays is how long acknowledged alerts are kept.
	// 0 keeps them forever.
	AlertRetentionDays int `yaml:"alert_retention_days"`

	// Schedule is a cron expression for sweep scheduling. Empty
	// disables scheduled sweeps.
	Schedule string `yaml:"schedule"`
}

// StorageConfig configures usage-record persistence.
type StorageConfig struct {
	// Backend selects the store implementation: "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file, used when Backend is "sqlite".
	Path string `yaml:"path"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MeterConfig returns the budget portion of the configuration in the
// form the meter engine consumes.
func (c *Config) MeterConfig() meter.Config {
	return meter.Config{
		Budget:    c.Budget,
		Overrides: c.Overrides,
	}
}
