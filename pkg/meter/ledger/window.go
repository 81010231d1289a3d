package ledger

import (
	"time"
)

// Scope identifies the time period a usage window covers.
type Scope string

const (
	// ScopeDaily covers the current local calendar day.
	ScopeDaily Scope = "daily"

	// ScopeMonthly covers the current calendar month.
	ScopeMonthly Scope = "monthly"

	// ScopeMinute covers a fixed 60-second period.
	ScopeMinute Scope = "minute"

	// ScopeHour covers a fixed 3600-second period.
	ScopeHour Scope = "hour"
)

// Scopes lists every window scope in refresh order.
var Scopes = []Scope{ScopeDaily, ScopeMonthly, ScopeMinute, ScopeHour}

// BudgetStatus is the qualitative state derived from daily budget consumption.
type BudgetStatus string

const (
	// StatusHealthy means daily spend is below the warning threshold.
	StatusHealthy BudgetStatus = "healthy"

	// StatusWarning means daily spend crossed the warning threshold.
	StatusWarning BudgetStatus = "warning"

	// StatusCritical means daily spend crossed the critical threshold.
	StatusCritical BudgetStatus = "critical"

	// StatusExceeded means daily spend reached or passed the limit.
	StatusExceeded BudgetStatus = "exceeded"
)

// Window accumulates cost, request, and token counters for one scope.
// Start marks when the current period began.
type Window struct {
	Cost     float64
	Requests int64
	Tokens   int64
	Start    time.Time
}

// stale reports whether a window that started at start has expired by now.
func stale(scope Scope, start, now time.Time) bool {
	switch scope {
	case ScopeDaily:
		y1, m1, d1 := start.Date()
		y2, m2, d2 := now.Date()
		return y1 != y2 || m1 != m2 || d1 != d2
	case ScopeMonthly:
		y1, m1, _ := start.Date()
		y2, m2, _ := now.Date()
		return y1 != y2 || m1 != m2
	case ScopeMinute:
		return now.Sub(start) >= time.Minute
	case ScopeHour:
		return now.Sub(start) >= time.Hour
	}
	return false
}

// refresh resets the window in place when it is stale. Returns true when a
// reset happened. Refresh is idempotent: a second call in the same period
// is a no-op.
func (w *Window) refresh(scope Scope, now time.Time) bool {
	if w.Start.IsZero() {
		w.Start = now
		return false
	}
	if !stale(scope, w.Start, now) {
		return false
	}
	*w = Window{Start: now}
	return true
}

// add accumulates usage into the window. Cost is clamped at zero so a
// commit delta or release can never drive a window negative.
func (w *Window) add(cost float64, requests, tokens int64) {
	w.Cost += cost
	if w.Cost < 0 {
		w.Cost = 0
	}
	w.Requests += requests
	if w.Requests < 0 {
		w.Requests = 0
	}
	w.Tokens += tokens
	if w.Tokens < 0 {
		w.Tokens = 0
	}
}
