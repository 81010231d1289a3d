package analytics

import (
	"time"
)

// GroupStats aggregates usage for one breakdown key (provider, model, user).
type GroupStats struct {
	Cost     float64
	Requests int
	Tokens   int
}

// TrendPoint is one bucket of the time-series breakdown.
type TrendPoint struct {
	// Start is the beginning of the bucket (midnight for day buckets,
	// top of the hour for hour buckets).
	Start time.Time

	Cost     float64
	Requests int
}

// CostSummary is the aggregate view over a time range.
type CostSummary struct {
	From time.Time
	To   time.Time

	TotalCost          float64
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int

	AvgCostPerRequest   float64
	AvgTokensPerRequest float64

	ByProvider map[string]GroupStats
	ByModel    map[string]GroupStats
	ByUser     map[string]GroupStats

	// Trend is day-bucketed, or hour-bucketed when From and To fall on
	// the same local calendar day.
	Trend []TrendPoint
}

// SuggestionKind is the closed set of optimization suggestion types.
type SuggestionKind string

const (
	// KindSwitchModel flags a single model dominating spend.
	KindSwitchModel SuggestionKind = "switch_model"

	// KindSwitchProvider flags a single provider dominating spend.
	KindSwitchProvider SuggestionKind = "switch_provider"

	// KindEnableCaching flags repeated near-duplicate requests.
	KindEnableCaching SuggestionKind = "enable_caching"

	// KindTrimPrompts flags high average token usage.
	KindTrimPrompts SuggestionKind = "trim_prompts"
)

// Suggestion is one cost-optimization recommendation.
type Suggestion struct {
	Kind             SuggestionKind
	Description      string
	EstimatedSavings float64

	// Priority orders suggestions; lower is more urgent.
	Priority int
}
