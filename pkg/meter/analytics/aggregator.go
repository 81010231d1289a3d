package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tollgate-hq/tollgate/pkg/meter/history"
)

// Thresholds and assumed-savings factors for the optimization heuristics.
const (
	// recentWindow is how many trailing records the heuristics inspect.
	recentWindow = 100

	dominantModelShare    = 0.60
	dominantProviderShare = 0.70
	duplicateMinCount     = 3
	highAvgTokens         = 2000

	modelSwitchSavings    = 0.30
	providerSwitchSavings = 0.25
	cachingSavings        = 0.80
	trimSavings           = 0.15

	// duplicateTokenBucket groups requests whose total token counts land
	// in the same bucket; matching model + bucket counts as a near-dup.
	duplicateTokenBucket = 500
)

// Summarize aggregates the given records into a CostSummary for [from, to].
// Records outside the range are ignored; an empty input yields a zeroed
// summary. The trend is hour-bucketed when the range covers a single local
// calendar day, day-bucketed otherwise.
func Summarize(records []history.Record, from, to time.Time) CostSummary {
	s := CostSummary{
		From:       from,
		To:         to,
		ByProvider: make(map[string]GroupStats),
		ByModel:    make(map[string]GroupStats),
		ByUser:     make(map[string]GroupStats),
	}

	hourly := sameLocalDay(from, to)
	trend := make(map[time.Time]*TrendPoint)

	totalTokens := 0
	for _, r := range records {
		if !from.IsZero() && r.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && r.Timestamp.After(to) {
			continue
		}

		s.TotalCost += r.Cost
		s.TotalRequests++
		if r.Success {
			s.SuccessfulRequests++
		} else {
			s.FailedRequests++
		}
		totalTokens += r.TotalTokens()

		addGroup(s.ByProvider, providerOf(r.ProviderID), r)
		addGroup(s.ByModel, modelOf(r), r)
		addGroup(s.ByUser, r.UserID, r)

		var start time.Time
		if hourly {
			start = r.Timestamp.Local().Truncate(time.Hour)
		} else {
			y, m, d := r.Timestamp.Local().Date()
			start = time.Date(y, m, d, 0, 0, 0, 0, time.Local)
		}
		p, ok := trend[start]
		if !ok {
			p = &TrendPoint{Start: start}
			trend[start] = p
		}
		p.Cost += r.Cost
		p.Requests++
	}

	if s.TotalRequests > 0 {
		s.AvgCostPerRequest = s.TotalCost / float64(s.TotalRequests)
		s.AvgTokensPerRequest = float64(totalTokens) / float64(s.TotalRequests)
	}

	s.Trend = make([]TrendPoint, 0, len(trend))
	for _, p := range trend {
		s.Trend = append(s.Trend, *p)
	}
	sort.Slice(s.Trend, func(i, j int) bool {
		return s.Trend[i].Start.Before(s.Trend[j].Start)
	})

	return s
}

// SuggestOptimizations runs the cost heuristics over the trailing records
// (callers typically pass the most recent ~100). Suggestions are ordered
// by priority, then by estimated savings descending.
func SuggestOptimizations(records []history.Record) []Suggestion {
	if len(records) > recentWindow {
		records = records[len(records)-recentWindow:]
	}
	if len(records) == 0 {
		return nil
	}

	var total float64
	totalTokens := 0
	byModel := make(map[string]float64)
	byProvider := make(map[string]float64)
	dupCost := make(map[string]float64)
	dupCount := make(map[string]int)

	for _, r := range records {
		total += r.Cost
		totalTokens += r.TotalTokens()
		byModel[modelOf(r)] += r.Cost
		byProvider[providerOf(r.ProviderID)] += r.Cost

		key := fmt.Sprintf("%s|%d", modelOf(r), r.TotalTokens()/duplicateTokenBucket)
		dupCost[key] += r.Cost
		dupCount[key]++
	}

	var out []Suggestion

	if model, cost, ok := dominant(byModel, total, dominantModelShare); ok {
		out = append(out, Suggestion{
			Kind:             KindSwitchModel,
			Description:      fmt.Sprintf("model %q accounts for %.0f%% of recent spend; a cheaper model could cut this substantially", model, cost/total*100),
			EstimatedSavings: cost * modelSwitchSavings,
			Priority:         1,
		})
	}

	if provider, cost, ok := dominant(byProvider, total, dominantProviderShare); ok {
		out = append(out, Suggestion{
			Kind:             KindSwitchProvider,
			Description:      fmt.Sprintf("provider %q accounts for %.0f%% of recent spend; compare alternative providers for the same workloads", provider, cost/total*100),
			EstimatedSavings: cost * providerSwitchSavings,
			Priority:         2,
		})
	}

	var cachableCost float64
	cachableGroups := 0
	for key, n := range dupCount {
		if n >= duplicateMinCount {
			cachableCost += dupCost[key]
			cachableGroups++
		}
	}
	if cachableGroups > 0 {
		out = append(out, Suggestion{
			Kind:             KindEnableCaching,
			Description:      fmt.Sprintf("%d group(s) of near-duplicate requests detected; caching responses could avoid most repeat calls", cachableGroups),
			EstimatedSavings: cachableCost * cachingSavings,
			Priority:         1,
		})
	}

	if avg := float64(totalTokens) / float64(len(records)); avg > highAvgTokens {
		out = append(out, Suggestion{
			Kind:             KindTrimPrompts,
			Description:      fmt.Sprintf("average request size is %.0f tokens; trimming prompts and capping completions would reduce spend", avg),
			EstimatedSavings: total * trimSavings,
			Priority:         3,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].EstimatedSavings > out[j].EstimatedSavings
	})
	return out
}

func addGroup(m map[string]GroupStats, key string, r history.Record) {
	if key == "" {
		key = "unknown"
	}
	g := m[key]
	g.Cost += r.Cost
	g.Requests++
	g.Tokens += r.TotalTokens()
	m[key] = g
}

// providerOf extracts the provider part of a composite "provider:model" ID.
func providerOf(providerID string) string {
	if i := strings.IndexByte(providerID, ':'); i > 0 {
		return providerID[:i]
	}
	return providerID
}

func modelOf(r history.Record) string {
	if r.Model != "" {
		return r.Model
	}
	if i := strings.IndexByte(r.ProviderID, ':'); i >= 0 && i+1 < len(r.ProviderID) {
		return r.ProviderID[i+1:]
	}
	return r.ProviderID
}

// dominant returns the single key holding more than share of the total.
func dominant(m map[string]float64, total, share float64) (string, float64, bool) {
	if total <= 0 {
		return "", 0, false
	}
	var bestKey string
	var bestCost float64
	for k, c := range m {
		if c > bestCost {
			bestKey, bestCost = k, c
		}
	}
	if bestCost/total > share {
		return bestKey, bestCost, true
	}
	return "", 0, false
}

func sameLocalDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	y1, m1, d1 := a.Local().Date()
	y2, m2, d2 := b.Local().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
