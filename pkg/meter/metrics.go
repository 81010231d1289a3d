package meter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus collectors for the meter engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	admissionChecks *prometheus.CounterVec
	denials         *prometheus.CounterVec
	recordedCost    *prometheus.CounterVec
	budgetUsage     *prometheus.GaugeVec
	alertsFired     *prometheus.CounterVec
	checkDuration   *prometheus.HistogramVec
}

// NewMetrics creates the engine collectors, registering them with reg
// (nil means the default registerer).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		admissionChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_admission_checks_total",
				Help: "Total number of admission checks performed",
			},
			[]string{"result"},
		),

		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_denials_total",
				Help: "Total number of denied admission checks by kind",
			},
			[]string{"kind"},
		),

		recordedCost: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_recorded_cost_usd_total",
				Help: "Total recorded cost in USD by provider",
			},
			[]string{"provider"},
		),

		budgetUsage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tollgate_budget_usage_percentage",
				Help: "Current budget usage as a percentage of the limit",
			},
			[]string{"user", "scope"},
		),

		alertsFired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_alerts_fired_total",
				Help: "Total number of budget alerts created",
			},
			[]string{"scope", "level"},
		),

		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tollgate_check_duration_seconds",
				Help:    "Duration of engine operations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"operation"},
		),
	}
}

// RecordAdmission records one admission check result.
func (m *Metrics) RecordAdmission(result AdmissionResult) {
	if m == nil {
		return
	}
	if result.Allowed {
		m.admissionChecks.WithLabelValues("allowed").Inc()
		return
	}
	m.admissionChecks.WithLabelValues("denied").Inc()
	m.denials.WithLabelValues(string(result.Denial)).Inc()
}

// RecordCost adds recorded spend for a provider.
func (m *Metrics) RecordCost(providerID string, cost float64) {
	if m == nil {
		return
	}
	m.recordedCost.WithLabelValues(providerID).Add(cost)
}

// UpdateBudgetUsage sets the current usage percentage for a user scope.
func (m *Metrics) UpdateBudgetUsage(userID, scope string, pct float64) {
	if m == nil {
		return
	}
	m.budgetUsage.WithLabelValues(userID, scope).Set(pct)
}

// RecordAlert counts a fired alert.
func (m *Metrics) RecordAlert(scope, level string) {
	if m == nil {
		return
	}
	m.alertsFired.WithLabelValues(scope, level).Inc()
}

// ObserveDuration records the duration of one engine operation.
func (m *Metrics) ObserveDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.checkDuration.WithLabelValues(operation).Observe(seconds)
}
