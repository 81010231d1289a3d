package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention TOLLGATE_SECTION_FIELD (e.g., TOLLGATE_BUDGET_DAILY_LIMIT)
// and always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	// Budget overrides
	if val := os.Getenv("TOLLGATE_BUDGET_OPERATION_CEILING"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.OperationCeiling = f
		}
	}
	if val := os.Getenv("TOLLGATE_BUDGET_DAILY_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.DailyLimit = f
		}
	}
	if val := os.Getenv("TOLLGATE_BUDGET_MONTHLY_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.MonthlyLimit = f
		}
	}
	if val := os.Getenv("TOLLGATE_BUDGET_REQUESTS_PER_MINUTE"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Budget.RequestsPerMinute = i
		}
	}
	if val := os.Getenv("TOLLGATE_BUDGET_REQUESTS_PER_HOUR"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Budget.RequestsPerHour = i
		}
	}
	if val := os.Getenv("TOLLGATE_BUDGET_WARNING_PCT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.WarningPct = f
		}
	}
	if val := os.Getenv("TOLLGATE_BUDGET_CRITICAL_PCT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.CriticalPct = f
		}
	}

	// Pricing overrides
	if val := os.Getenv("TOLLGATE_PRICING_FILE_PATH"); val != "" {
		cfg.Pricing.FilePath = val
	}
	if val := os.Getenv("TOLLGATE_PRICING_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Pricing.Watch = b
		}
	}
	if val := os.Getenv("TOLLGATE_PRICING_DEFAULT_RATE_PER_TOKEN"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Pricing.DefaultRatePerToken = f
		}
	}

	// History overrides
	if val := os.Getenv("TOLLGATE_HISTORY_MAX_RECORDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.History.MaxRecords = i
		}
	}

	// Retention overrides
	if val := os.Getenv("TOLLGATE_RETENTION_RECORD_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Retention.RecordRetentionDays = i
		}
	}
	if val := os.Getenv("TOLLGATE_RETENTION_ALERT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Retention.AlertRetentionDays = i
		}
	}
	if val := os.Getenv("TOLLGATE_RETENTION_SCHEDULE"); val != "" {
		cfg.Retention.Schedule = val
	}

	// Storage overrides
	if val := os.Getenv("TOLLGATE_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("TOLLGATE_STORAGE_PATH"); val != "" {
		cfg.Storage.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("TOLLGATE_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("TOLLGATE_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
}
