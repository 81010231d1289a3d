package meter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tollgate-hq/tollgate/pkg/meter/alerts"
	"tollgate-hq/tollgate/pkg/meter/analytics"
	"tollgate-hq/tollgate/pkg/meter/history"
	"tollgate-hq/tollgate/pkg/meter/ledger"
	"tollgate-hq/tollgate/pkg/meter/pricing"
	"tollgate-hq/tollgate/pkg/meter/storage"
)

// trimHintTokens is the request size above which a prompt-trimming hint
// is attached to admission results.
const trimHintTokens = 2000

// saveTimeout bounds background persistence of a single usage record.
const saveTimeout = 5 * time.Second

// Engine is the admission-control and usage-metering core. All methods
// are safe for concurrent use.
type Engine struct {
	cfg     atomic.Pointer[Config]
	pricing *pricing.Table
	ledgers *ledger.Registry
	alerts  *alerts.Manager
	history *history.Ring
	store   storage.Store
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Options configures a new Engine. Config is required; everything else
// has a usable default.
type Options struct {
	// Config is the initial budget configuration.
	Config Config

	// Pricing is the provider pricing table. Nil means a table seeded
	// with built-in defaults.
	Pricing *pricing.Table

	// Store persists usage records. Nil disables persistence; the
	// in-memory history ring still works.
	Store storage.Store

	// Metrics receives engine observations. Nil disables metrics.
	Metrics *Metrics

	// Logger defaults to slog.Default with a component attribute.
	Logger *slog.Logger

	// HistoryCap overrides the in-memory history capacity.
	HistoryCap int

	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// New creates an Engine from the given options.
func New(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	table := opts.Pricing
	if table == nil {
		table = pricing.NewTable(clock)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "meter")
	}
	histCap := opts.HistoryCap
	if histCap <= 0 {
		histCap = history.DefaultMaxRecords
	}

	e := &Engine{
		pricing: table,
		ledgers: ledger.NewRegistry(clock),
		alerts:  alerts.NewManager(clock),
		history: history.NewRing(histCap),
		store:   opts.Store,
		metrics: opts.Metrics,
		logger:  logger,
		now:     clock,
	}
	cfg := opts.Config
	e.cfg.Store(&cfg)
	return e, nil
}

// Config returns the current configuration.
func (e *Engine) Config() Config {
	return *e.cfg.Load()
}

// UpdateConfig validates and atomically installs a new configuration.
// On error the previous configuration stays in effect.
func (e *Engine) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	e.cfg.Store(&cfg)
	e.logger.Info("configuration updated",
		"overrides", len(cfg.Overrides))
	return nil
}

// EstimateCost estimates the cost of a call in USD without touching any
// ledger state.
func (e *Engine) EstimateCost(providerID string, est TokenEstimate) float64 {
	return e.pricing.Estimate(providerID, est.Input, est.Output)
}

// CheckAdmission decides whether a metered call may proceed. The check
// is read-only: it never counts a request or charges a cost. Checks run
// in a fixed order and the first failing one decides the outcome:
// per-operation ceiling, daily budget, monthly budget, per-minute rate,
// per-hour rate.
func (e *Engine) CheckAdmission(userID, providerID string, est TokenEstimate) AdmissionResult {
	started := e.now()
	budget := e.cfg.Load().forUser(userID)

	snap, resets := e.ledgers.Snapshot(userID)
	e.clearResetScopes(userID, resets)

	estCost := e.pricing.Estimate(providerID, est.Input, est.Output)
	result := e.decide(budget, snap, providerID, estCost, est)

	e.metrics.RecordAdmission(result)
	e.metrics.ObserveDuration("check_admission", e.now().Sub(started).Seconds())

	if !result.Allowed {
		e.logger.Debug("admission denied",
			"user", userID,
			"provider", providerID,
			"kind", string(result.Denial),
			"estimated_cost", estCost)
	}
	return result
}

// decide applies the admission checks to a ledger snapshot.
func (e *Engine) decide(budget BudgetConfig, snap ledger.Snapshot, providerID string, estCost float64, est TokenEstimate) AdmissionResult {
	result := AdmissionResult{EstimatedCost: estCost}

	if budget.OperationCeiling > 0 && estCost > budget.OperationCeiling {
		result.Denial = DenialOperationCeiling
		result.Reason = fmt.Sprintf("estimated cost $%.4f exceeds per-operation ceiling $%.4f",
			estCost, budget.OperationCeiling)
		result.Alternatives = e.alternativesFor(providerID, est, estCost, budget.OperationCeiling)
		if est.Total() > trimHintTokens {
			result.Warnings = append(result.Warnings, Warning{
				Level:   LevelNotice,
				Message: fmt.Sprintf("request is %d tokens; shrinking the input may bring it under the ceiling", est.Total()),
			})
		}
		return result
	}

	if budget.DailyLimit > 0 && snap.Daily.Cost+estCost > budget.DailyLimit {
		result.Denial = DenialDailyBudget
		result.Reason = fmt.Sprintf("daily budget limit exceeded: $%.4f spent + $%.4f estimated > $%.4f limit",
			snap.Daily.Cost, estCost, budget.DailyLimit)
		return result
	}

	if budget.MonthlyLimit > 0 && snap.Monthly.Cost+estCost > budget.MonthlyLimit {
		result.Denial = DenialMonthlyBudget
		result.Reason = fmt.Sprintf("monthly budget limit exceeded: $%.4f spent + $%.4f estimated > $%.4f limit",
			snap.Monthly.Cost, estCost, budget.MonthlyLimit)
		return result
	}

	if budget.RequestsPerMinute > 0 && snap.Minute.Requests >= budget.RequestsPerMinute {
		result.Denial = DenialMinuteRate
		result.Reason = fmt.Sprintf("per-minute rate limit exceeded: %d of %d requests used",
			snap.Minute.Requests, budget.RequestsPerMinute)
		return result
	}

	if budget.RequestsPerHour > 0 && snap.Hour.Requests >= budget.RequestsPerHour {
		result.Denial = DenialHourRate
		result.Reason = fmt.Sprintf("per-hour rate limit exceeded: %d of %d requests used",
			snap.Hour.Requests, budget.RequestsPerHour)
		return result
	}

	result.Allowed = true
	result.Warnings = append(result.Warnings,
		thresholdWarnings(budget, snap, estCost)...)
	if est.Total() > trimHintTokens {
		result.Warnings = append(result.Warnings, Warning{
			Level:   LevelNotice,
			Message: fmt.Sprintf("request is %d tokens; consider trimming the prompt to reduce cost", est.Total()),
		})
	}
	if alts := e.alternativesFor(providerID, est, estCost/2, 0); len(alts) > 0 {
		result.Warnings = append(result.Warnings, Warning{
			Level: LevelNotice,
			Message: fmt.Sprintf("provider %s would cost $%.4f for this request, under half of $%.4f",
				alts[0].ProviderID, alts[0].EstimatedCost, estCost),
		})
	}
	return result
}

// thresholdWarnings returns warnings for budgets whose projected spend
// crosses the warning or critical thresholds. The projection includes
// the estimated cost of the call being admitted.
func thresholdWarnings(budget BudgetConfig, snap ledger.Snapshot, estCost float64) []Warning {
	var out []Warning

	check := func(scope ledger.Scope, current, limit float64) {
		if limit <= 0 {
			return
		}
		pct := (current + estCost) / limit * 100
		switch {
		case budget.CriticalPct > 0 && pct >= budget.CriticalPct:
			out = append(out, Warning{
				Level:      LevelCritical,
				Scope:      scope,
				PctOfLimit: pct,
				Message:    fmt.Sprintf("%s budget at %.1f%% of $%.2f limit", scope, pct, limit),
			})
		case budget.WarningPct > 0 && pct >= budget.WarningPct:
			out = append(out, Warning{
				Level:      LevelWarning,
				Scope:      scope,
				PctOfLimit: pct,
				Message:    fmt.Sprintf("%s budget at %.1f%% of $%.2f limit", scope, pct, limit),
			})
		}
	}

	check(ledger.ScopeDaily, snap.Daily.Cost, budget.DailyLimit)
	check(ledger.ScopeMonthly, snap.Monthly.Cost, budget.MonthlyLimit)
	return out
}

// alternativesFor lists cheaper providers whose estimate fits under the
// ceiling, ranked ascending by cost, capped at three.
func (e *Engine) alternativesFor(providerID string, est TokenEstimate, estCost, ceiling float64) []Alternative {
	var out []Alternative
	for _, id := range e.pricing.Providers() {
		if id == providerID {
			continue
		}
		cost := e.pricing.Estimate(id, est.Input, est.Output)
		if cost >= estCost || (ceiling > 0 && cost > ceiling) {
			continue
		}
		out = append(out, Alternative{ProviderID: id, EstimatedCost: cost})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EstimatedCost < out[j].EstimatedCost
	})
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// RecordUsage records the true cost of a completed call against the
// user's ledgers and returns the stored usage record. Recording never
// blocks the call: it always succeeds even when the spend pushes a
// budget over its limit.
func (e *Engine) RecordUsage(userID, providerID, operation string, u Usage) history.Record {
	started := e.now()
	tokens := int64(u.InputTokens + u.OutputTokens)

	snap, resets := e.ledgers.Apply(userID, u.Cost, 1, tokens)
	rec := e.finishRecord(userID, providerID, operation, u, snap, resets)

	e.metrics.ObserveDuration("record_usage", e.now().Sub(started).Seconds())
	return rec
}

// Reserve checks admission and, when allowed, pre-charges the estimated
// cost and one request against every window. The check and the charge
// happen atomically under the user's ledger lock, so concurrent callers
// cannot collectively overshoot a budget. A granted reservation must be
// settled with Commit or unwound with Release.
func (e *Engine) Reserve(userID, providerID, operation string, est TokenEstimate) (*Reservation, AdmissionResult) {
	started := e.now()
	budget := e.cfg.Load().forUser(userID)
	estCost := e.pricing.Estimate(providerID, est.Input, est.Output)

	var result AdmissionResult
	_, resets, ok := e.ledgers.ReserveIf(userID, estCost, func(snap ledger.Snapshot) bool {
		result = e.decide(budget, snap, providerID, estCost, est)
		return result.Allowed
	})
	e.clearResetScopes(userID, resets)

	e.metrics.RecordAdmission(result)
	e.metrics.ObserveDuration("reserve", e.now().Sub(started).Seconds())

	if !ok {
		e.logger.Debug("reservation denied",
			"user", userID,
			"provider", providerID,
			"kind", string(result.Denial),
			"estimated_cost", estCost)
		return nil, result
	}

	return &Reservation{
		UserID:        userID,
		ProviderID:    providerID,
		Operation:     operation,
		EstimatedCost: estCost,
	}, result
}

// Commit settles a reservation with the call's actual usage. The ledger
// ends up charged exactly the actual cost and one request.
func (e *Engine) Commit(res *Reservation, u Usage) history.Record {
	tokens := int64(u.InputTokens + u.OutputTokens)
	snap, resets := e.ledgers.Commit(res.UserID, res.EstimatedCost, u.Cost, tokens)
	return e.finishRecord(res.UserID, res.ProviderID, res.Operation, u, snap, resets)
}

// Release unwinds a reservation whose call never produced usage, for
// example because the provider errored before doing any work.
func (e *Engine) Release(res *Reservation) {
	e.ledgers.Release(res.UserID, res.EstimatedCost)
}

// finishRecord runs the shared tail of the recording pipeline: status,
// history, persistence, alerts, metrics.
func (e *Engine) finishRecord(userID, providerID, operation string, u Usage, snap ledger.Snapshot, resets []ledger.Scope) history.Record {
	e.clearResetScopes(userID, resets)

	budget := e.cfg.Load().forUser(userID)
	status := statusFor(budget, snap)
	e.ledgers.SetStatus(userID, status)

	rec := history.Record{
		ID:           uuid.New().String(),
		Timestamp:    e.now(),
		UserID:       userID,
		Operation:    operation,
		ProviderID:   providerID,
		Model:        u.Model,
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		Cost:         u.Cost,
		Success:      u.Success,
		Metadata:     u.Metadata,
	}
	e.history.Append(rec)

	if e.store != nil {
		go e.saveRecord(rec)
	}

	e.observeAlerts(userID, budget, snap)

	e.metrics.RecordCost(providerID, u.Cost)
	e.metrics.UpdateBudgetUsage(userID, string(ledger.ScopeDaily),
		pctOf(snap.Daily.Cost, budget.DailyLimit))
	e.metrics.UpdateBudgetUsage(userID, string(ledger.ScopeMonthly),
		pctOf(snap.Monthly.Cost, budget.MonthlyLimit))

	e.logger.Debug("usage recorded",
		"user", userID,
		"provider", providerID,
		"operation", operation,
		"cost", u.Cost,
		"status", string(status))
	return rec
}

// saveRecord persists a record in the background. Persistence failures
// are logged and never surfaced to the caller; the in-memory history
// already holds the record.
func (e *Engine) saveRecord(rec history.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := e.store.SaveRecord(ctx, rec); err != nil {
		e.logger.Error("failed to persist usage record",
			"record_id", rec.ID,
			"error", err)
	}
}

// observeAlerts feeds current usage to the alert manager for every
// budgeted scope and counts any alerts that fire.
func (e *Engine) observeAlerts(userID string, budget BudgetConfig, snap ledger.Snapshot) {
	observe := func(scope ledger.Scope, current, limit float64) {
		a := e.alerts.Observe(userID, scope, current, limit,
			budget.WarningPct, budget.CriticalPct)
		if a == nil {
			return
		}
		e.metrics.RecordAlert(string(scope), string(a.Level))
		e.logger.Warn("budget alert",
			"user", userID,
			"scope", string(scope),
			"level", string(a.Level),
			"current", a.CurrentValue,
			"limit", a.LimitValue)
	}

	observe(ledger.ScopeDaily, snap.Daily.Cost, budget.DailyLimit)
	observe(ledger.ScopeMonthly, snap.Monthly.Cost, budget.MonthlyLimit)
	observe(ledger.ScopeMinute, float64(snap.Minute.Requests), float64(budget.RequestsPerMinute))
	observe(ledger.ScopeHour, float64(snap.Hour.Requests), float64(budget.RequestsPerHour))
}

// clearResetScopes acknowledges open alerts for scopes whose windows
// just reset, so a fresh window can alert again.
func (e *Engine) clearResetScopes(userID string, resets []ledger.Scope) {
	for _, s := range resets {
		e.alerts.ClearScope(userID, s)
	}
}

// statusFor derives a budget status from current spend against the
// daily and monthly limits, taking the worse of the two.
func statusFor(budget BudgetConfig, snap ledger.Snapshot) ledger.BudgetStatus {
	pct := pctOf(snap.Daily.Cost, budget.DailyLimit)
	if p := pctOf(snap.Monthly.Cost, budget.MonthlyLimit); p > pct {
		pct = p
	}

	switch {
	case pct >= 100:
		return ledger.StatusExceeded
	case budget.CriticalPct > 0 && pct >= budget.CriticalPct:
		return ledger.StatusCritical
	case budget.WarningPct > 0 && pct >= budget.WarningPct:
		return ledger.StatusWarning
	default:
		return ledger.StatusHealthy
	}
}

// pctOf returns current as a percentage of limit, zero when the limit
// is unset.
func pctOf(current, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return current / limit * 100
}

// GetUserStats returns a read-only view of one user's ledger, budget
// percentages, and open alerts.
func (e *Engine) GetUserStats(userID string) UserStats {
	budget := e.cfg.Load().forUser(userID)
	snap, resets := e.ledgers.Snapshot(userID)
	e.clearResetScopes(userID, resets)

	return UserStats{
		Ledger:     snap,
		DailyPct:   pctOf(snap.Daily.Cost, budget.DailyLimit),
		MonthlyPct: pctOf(snap.Monthly.Cost, budget.MonthlyLimit),
		OpenAlerts: e.alerts.Unacknowledged(userID),
	}
}

// CostSummary aggregates in-memory history for the given user and time
// range. An empty userID covers all users.
func (e *Engine) CostSummary(userID string, from, to time.Time) analytics.CostSummary {
	records := e.history.Snapshot(history.Filter{UserID: userID, From: from, To: to})
	return analytics.Summarize(records, from, to)
}

// OptimizationSuggestions inspects recent usage and returns cost-saving
// suggestions, highest priority first.
func (e *Engine) OptimizationSuggestions(userID string) []analytics.Suggestion {
	records := e.history.Snapshot(history.Filter{UserID: userID})
	return analytics.SuggestOptimizations(records)
}

// Alerts returns every alert for a user, newest first.
func (e *Engine) Alerts(userID string) []alerts.Alert {
	return e.alerts.List(userID)
}

// AcknowledgeAlert marks an alert handled. It reports whether the alert
// exists.
func (e *Engine) AcknowledgeAlert(alertID string) bool {
	return e.alerts.Acknowledge(alertID)
}

// History exposes the in-memory usage history.
func (e *Engine) History() *history.Ring {
	return e.history
}

// Pricing exposes the pricing table, for reload watchers and reporting.
func (e *Engine) Pricing() *pricing.Table {
	return e.pricing
}

// PruneAlertsBefore drops acknowledged alerts created before the cutoff
// and returns how many were removed.
func (e *Engine) PruneAlertsBefore(cutoff time.Time) int {
	return e.alerts.PruneBefore(cutoff)
}

// TrimHistoryBefore drops in-memory records older than the cutoff and
// returns how many were removed.
func (e *Engine) TrimHistoryBefore(cutoff time.Time) int {
	return e.history.TrimBefore(cutoff)
}

// CleanupStore deletes persisted records older than the cutoff. It is a
// no-op without a store.
func (e *Engine) CleanupStore(ctx context.Context, olderThan time.Time) (int, error) {
	if e.store == nil {
		return 0, nil
	}
	return e.store.Cleanup(ctx, olderThan)
}
