package config

import "tollgate-hq/tollgate/pkg/meter/pricing"

// Default values for configuration fields.
const (
	// Budget defaults
	DefaultOperationCeiling  = 1.00
	DefaultDailyLimit        = 25.00
	DefaultMonthlyLimit      = 500.00
	DefaultRequestsPerMinute = int64(30)
	DefaultRequestsPerHour   = int64(500)
	DefaultWarningPct        = 80.0
	DefaultCriticalPct       = 95.0

	// History defaults
	DefaultHistoryMaxRecords = 10000

	// Retention defaults
	DefaultRecordRetentionDays = 90
	DefaultAlertRetentionDays  = 30
	DefaultRetentionSchedule   = "0 3 * * *"

	// Storage defaults
	DefaultStorageBackend = "memory"
	DefaultSQLitePath     = "data/tollgate.db"

	// Telemetry defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	if cfg.Budget.OperationCeiling == 0 {
		cfg.Budget.OperationCeiling = DefaultOperationCeiling
	}
	if cfg.Budget.DailyLimit == 0 {
		cfg.Budget.DailyLimit = DefaultDailyLimit
	}
	if cfg.Budget.MonthlyLimit == 0 {
		cfg.Budget.MonthlyLimit = DefaultMonthlyLimit
	}
	if cfg.Budget.RequestsPerMinute == 0 {
		cfg.Budget.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.Budget.RequestsPerHour == 0 {
		cfg.Budget.RequestsPerHour = DefaultRequestsPerHour
	}
	if cfg.Budget.WarningPct == 0 {
		cfg.Budget.WarningPct = DefaultWarningPct
	}
	if cfg.Budget.CriticalPct == 0 {
		cfg.Budget.CriticalPct = DefaultCriticalPct
	}

	if cfg.Pricing.DefaultRatePerToken == 0 {
		cfg.Pricing.DefaultRatePerToken = pricing.DefaultRatePerToken
	}

	if cfg.History.MaxRecords == 0 {
		cfg.History.MaxRecords = DefaultHistoryMaxRecords
	}

	if cfg.Retention.RecordRetentionDays == 0 {
		cfg.Retention.RecordRetentionDays = DefaultRecordRetentionDays
	}
	if cfg.Retention.AlertRetentionDays == 0 {
		cfg.Retention.AlertRetentionDays = DefaultAlertRetentionDays
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultSQLitePath
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
}
