package meter

import (
	"errors"
	"fmt"

	"tollgate-hq/tollgate/pkg/meter/alerts"
	"tollgate-hq/tollgate/pkg/meter/ledger"
)

// DenialKind is the closed set of reasons an admission check can refuse
// a request. The zero value means "not denied".
type DenialKind string

const (
	// DenialOperationCeiling means the single-call estimate exceeds the
	// per-operation ceiling.
	DenialOperationCeiling DenialKind = "operation_ceiling_exceeded"

	// DenialDailyBudget means the call would push daily spend past the limit.
	DenialDailyBudget DenialKind = "daily_budget_exceeded"

	// DenialMonthlyBudget means the call would push monthly spend past the limit.
	DenialMonthlyBudget DenialKind = "monthly_budget_exceeded"

	// DenialMinuteRate means the per-minute request limit is already met.
	DenialMinuteRate DenialKind = "minute_rate_limit_exceeded"

	// DenialHourRate means the per-hour request limit is already met.
	DenialHourRate DenialKind = "hour_rate_limit_exceeded"
)

// WarningLevel grades admission warnings.
type WarningLevel string

const (
	// LevelNotice is an advisory cost-optimization hint.
	LevelNotice WarningLevel = "notice"

	// LevelWarning means projected spend crossed the warning threshold.
	LevelWarning WarningLevel = "warning"

	// LevelCritical means projected spend crossed the critical threshold.
	LevelCritical WarningLevel = "critical"
)

// Warning is attached to an admission result. Warnings never change the
// admission decision.
type Warning struct {
	Level WarningLevel

	// Scope is set for threshold warnings, empty for advisory hints.
	Scope ledger.Scope

	// PctOfLimit is the projected percentage of the scope's limit,
	// zero for advisory hints.
	PctOfLimit float64

	Message string
}

// Alternative suggests a different provider for the same token counts.
type Alternative struct {
	ProviderID    string
	EstimatedCost float64
}

// TokenEstimate carries the pre-call token estimate for a request.
type TokenEstimate struct {
	Input  int
	Output int
}

// Total returns the combined estimated token count.
func (t TokenEstimate) Total() int {
	return t.Input + t.Output
}

// AdmissionResult is the outcome of one admission check. It is a fresh
// value per check; a denial is a normal result, not an error.
type AdmissionResult struct {
	Allowed bool

	// Denial is set when Allowed is false.
	Denial DenialKind

	// Reason is a human-readable explanation for a denial.
	Reason string

	// EstimatedCost is the pre-call cost estimate in USD.
	EstimatedCost float64

	// Warnings are threshold warnings and advisory hints.
	Warnings []Warning

	// Alternatives lists cheaper providers, ranked ascending by
	// estimated cost, on operation-ceiling denials.
	Alternatives []Alternative
}

// Usage is the post-call report from a provider invocation.
type Usage struct {
	Cost         float64
	InputTokens  int
	OutputTokens int
	Model        string
	Success      bool
	Metadata     map[string]string
}

// Reservation is a tentative charge against a user's budget made before
// the metered call's true cost is known. Settle it with Engine.Commit or
// unwind it with Engine.Release.
type Reservation struct {
	UserID        string
	ProviderID    string
	Operation     string
	EstimatedCost float64
}

// UserStats is a read-only view of one user's ledger and open alerts.
type UserStats struct {
	Ledger     ledger.Snapshot
	DailyPct   float64
	MonthlyPct float64
	OpenAlerts []alerts.Alert
}

// BudgetConfig bounds a user's spending and request rates. Zero values
// disable the corresponding check.
type BudgetConfig struct {
	// OperationCeiling is the maximum estimated cost for a single call, USD.
	OperationCeiling float64 `yaml:"operation_ceiling"`

	// DailyLimit is the maximum spend per local calendar day, USD.
	DailyLimit float64 `yaml:"daily_limit"`

	// MonthlyLimit is the maximum spend per calendar month, USD.
	MonthlyLimit float64 `yaml:"monthly_limit"`

	// RequestsPerMinute caps requests per 60-second window.
	RequestsPerMinute int64 `yaml:"requests_per_minute"`

	// RequestsPerHour caps requests per 3600-second window.
	RequestsPerHour int64 `yaml:"requests_per_hour"`

	// WarningPct is the percentage of a budget at which warnings fire.
	WarningPct float64 `yaml:"warning_pct"`

	// CriticalPct is the percentage at which critical warnings fire.
	CriticalPct float64 `yaml:"critical_pct"`
}

// Validate rejects impossible budget configurations.
func (c BudgetConfig) Validate() error {
	var errs []error
	if c.OperationCeiling < 0 {
		errs = append(errs, errors.New("operation_ceiling cannot be negative"))
	}
	if c.DailyLimit < 0 {
		errs = append(errs, errors.New("daily_limit cannot be negative"))
	}
	if c.MonthlyLimit < 0 {
		errs = append(errs, errors.New("monthly_limit cannot be negative"))
	}
	if c.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests_per_minute cannot be negative"))
	}
	if c.RequestsPerHour < 0 {
		errs = append(errs, errors.New("requests_per_hour cannot be negative"))
	}
	if c.WarningPct < 0 || c.WarningPct > 100 {
		errs = append(errs, errors.New("warning_pct must be between 0 and 100"))
	}
	if c.CriticalPct < 0 || c.CriticalPct > 100 {
		errs = append(errs, errors.New("critical_pct must be between 0 and 100"))
	}
	if c.WarningPct > 0 && c.CriticalPct > 0 && c.WarningPct >= c.CriticalPct {
		errs = append(errs, errors.New("warning_pct must be below critical_pct"))
	}
	return errors.Join(errs...)
}

// Config is the engine configuration. It is replaced whole on update;
// concurrent readers never observe a partial mix of old and new values.
type Config struct {
	// Budget applies to every user without an override.
	Budget BudgetConfig `yaml:"budget"`

	// Overrides maps user IDs to user-specific budgets.
	Overrides map[string]BudgetConfig `yaml:"overrides"`
}

// Validate checks the default budget and every override.
func (c Config) Validate() error {
	if err := c.Budget.Validate(); err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	for user, b := range c.Overrides {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("override for %q: %w", user, err)
		}
	}
	return nil
}

// forUser resolves the effective budget for a user.
func (c Config) forUser(userID string) BudgetConfig {
	if b, ok := c.Overrides[userID]; ok {
		return b
	}
	return c.Budget
}
