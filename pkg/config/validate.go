package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"tollgate-hq/tollgate/pkg/meter"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "budget.daily_limit").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateBudget("budget", cfg.Budget)...)
	for user, b := range cfg.Overrides {
		errs = append(errs, validateBudget(fmt.Sprintf("overrides.%s", user), b)...)
	}
	errs = append(errs, validatePricing(&cfg.Pricing)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateBudget(prefix string, b meter.BudgetConfig) []FieldError {
	var errs []FieldError

	if b.OperationCeiling < 0 {
		errs = append(errs, FieldError{prefix + ".operation_ceiling", "cannot be negative"})
	}
	if b.DailyLimit < 0 {
		errs = append(errs, FieldError{prefix + ".daily_limit", "cannot be negative"})
	}
	if b.MonthlyLimit < 0 {
		errs = append(errs, FieldError{prefix + ".monthly_limit", "cannot be negative"})
	}
	if b.MonthlyLimit > 0 && b.DailyLimit > b.MonthlyLimit {
		errs = append(errs, FieldError{prefix + ".daily_limit", "cannot exceed monthly_limit"})
	}
	if b.RequestsPerMinute < 0 {
		errs = append(errs, FieldError{prefix + ".requests_per_minute", "cannot be negative"})
	}
	if b.RequestsPerHour < 0 {
		errs = append(errs, FieldError{prefix + ".requests_per_hour", "cannot be negative"})
	}
	if b.WarningPct < 0 || b.WarningPct > 100 {
		errs = append(errs, FieldError{prefix + ".warning_pct", "must be between 0 and 100"})
	}
	if b.CriticalPct < 0 || b.CriticalPct > 100 {
		errs = append(errs, FieldError{prefix + ".critical_pct", "must be between 0 and 100"})
	}
	if b.WarningPct > 0 && b.CriticalPct > 0 && b.WarningPct >= b.CriticalPct {
		errs = append(errs, FieldError{prefix + ".warning_pct", "must be below critical_pct"})
	}

	return errs
}

func validatePricing(p *PricingConfig) []FieldError {
	var errs []FieldError

	if p.DefaultRatePerToken < 0 {
		errs = append(errs, FieldError{"pricing.default_rate_per_token", "cannot be negative"})
	}
	if p.Watch && p.FilePath == "" {
		errs = append(errs, FieldError{"pricing.watch", "requires pricing.file_path"})
	}

	return errs
}

func validateHistory(h *HistoryConfig) []FieldError {
	var errs []FieldError

	if h.MaxRecords < 0 {
		errs = append(errs, FieldError{"history.max_records", "cannot be negative"})
	}

	return errs
}

func validateRetention(r *RetentionConfig) []FieldError {
	var errs []FieldError

	if r.RecordRetentionDays < 0 {
		errs = append(errs, FieldError{"retention.record_retention_days", "cannot be negative"})
	}
	if r.AlertRetentionDays < 0 {
		errs = append(errs, FieldError{"retention.alert_retention_days", "cannot be negative"})
	}
	if r.Schedule != "" {
		if _, err := cron.ParseStandard(r.Schedule); err != nil {
			errs = append(errs, FieldError{"retention.schedule",
				fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}

	return errs
}

func validateStorage(s *StorageConfig) []FieldError {
	var errs []FieldError

	switch s.Backend {
	case "", "memory":
	case "sqlite":
		if s.Path == "" {
			errs = append(errs, FieldError{"storage.path", "required for the sqlite backend"})
		}
	default:
		errs = append(errs, FieldError{"storage.backend",
			fmt.Sprintf("unknown backend %q, must be \"memory\" or \"sqlite\"", s.Backend)})
	}

	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch t.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level",
			fmt.Sprintf("unknown level %q, must be debug, info, warn, or error", t.Logging.Level)})
	}
	switch t.Logging.Format {
	case "", "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format",
			fmt.Sprintf("unknown format %q, must be json or text", t.Logging.Format)})
	}

	return errs
}
