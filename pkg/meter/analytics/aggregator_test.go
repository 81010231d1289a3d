package analytics

import (
	"fmt"
	"testing"
	"time"

	"tollgate-hq/tollgate/pkg/meter/history"
)

func rec(user, providerID, model string, tokens int, cost float64, success bool, ts time.Time) history.Record {
	return history.Record{
		ID:           fmt.Sprintf("%s-%d", user, ts.UnixNano()),
		Timestamp:    ts,
		UserID:       user,
		Operation:    "generate",
		ProviderID:   providerID,
		Model:        model,
		InputTokens:  tokens / 2,
		OutputTokens: tokens - tokens/2,
		Cost:         cost,
		Success:      success,
	}
}

func TestSummarize_Totals(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	records := []history.Record{
		rec("alice", "openai:gpt-4o", "gpt-4o", 1000, 0.10, true, base),
		rec("alice", "openai:gpt-4o", "gpt-4o", 2000, 0.20, true, base.Add(time.Hour)),
		rec("bob", "anthropic:claude-3-haiku", "claude-3-haiku", 500, 0.05, false, base.Add(2*time.Hour)),
	}

	s := Summarize(records, base.Add(-time.Hour), base.Add(24*time.Hour))

	if !closeTo(s.TotalCost, 0.35) {
		t.Errorf("expected total cost 0.35, got %.4f", s.TotalCost)
	}
	if s.TotalRequests != 3 || s.SuccessfulRequests != 2 || s.FailedRequests != 1 {
		t.Errorf("unexpected request counts: %d/%d/%d", s.TotalRequests, s.SuccessfulRequests, s.FailedRequests)
	}
	if !closeTo(s.AvgCostPerRequest, 0.35/3) {
		t.Errorf("unexpected avg cost %.6f", s.AvgCostPerRequest)
	}
	if !closeTo(s.AvgTokensPerRequest, 3500.0/3) {
		t.Errorf("unexpected avg tokens %.2f", s.AvgTokensPerRequest)
	}

	if g := s.ByProvider["openai"]; g.Requests != 2 || !closeTo(g.Cost, 0.30) {
		t.Errorf("unexpected openai group: %+v", g)
	}
	if g := s.ByModel["claude-3-haiku"]; g.Requests != 1 {
		t.Errorf("unexpected model group: %+v", g)
	}
	if g := s.ByUser["alice"]; g.Tokens != 3000 {
		t.Errorf("unexpected alice tokens: %+v", g)
	}
}

func TestSummarize_EmptyRangeIsZeroed(t *testing.T) {
	base := time.Now()
	records := []history.Record{
		rec("alice", "openai:gpt-4o", "gpt-4o", 1000, 0.10, true, base),
	}

	s := Summarize(records, base.Add(-48*time.Hour), base.Add(-24*time.Hour))
	if s.TotalRequests != 0 || s.TotalCost != 0 {
		t.Errorf("out-of-range query should be zeroed, got %+v", s)
	}
	if len(s.Trend) != 0 {
		t.Errorf("expected empty trend, got %d points", len(s.Trend))
	}
}

func TestSummarize_DayBuckets(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	day2 := day1.Add(24 * time.Hour)
	records := []history.Record{
		rec("alice", "openai:gpt-4o", "gpt-4o", 100, 0.01, true, day1),
		rec("alice", "openai:gpt-4o", "gpt-4o", 100, 0.02, true, day1.Add(time.Hour)),
		rec("alice", "openai:gpt-4o", "gpt-4o", 100, 0.04, true, day2),
	}

	s := Summarize(records, day1.Add(-time.Hour), day2.Add(time.Hour))
	if len(s.Trend) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(s.Trend))
	}
	if !closeTo(s.Trend[0].Cost, 0.03) || s.Trend[0].Requests != 2 {
		t.Errorf("unexpected first bucket: %+v", s.Trend[0])
	}
	if s.Trend[0].Start.Hour() != 0 {
		t.Errorf("day bucket should start at midnight, got %v", s.Trend[0].Start)
	}
}

func TestSummarize_HourBucketsForSingleDay(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	records := []history.Record{
		rec("alice", "openai:gpt-4o", "gpt-4o", 100, 0.01, true, day.Add(9*time.Hour)),
		rec("alice", "openai:gpt-4o", "gpt-4o", 100, 0.02, true, day.Add(9*time.Hour+30*time.Minute)),
		rec("alice", "openai:gpt-4o", "gpt-4o", 100, 0.04, true, day.Add(14*time.Hour)),
	}

	s := Summarize(records, day.Add(8*time.Hour), day.Add(18*time.Hour))
	if len(s.Trend) != 2 {
		t.Fatalf("expected 2 hour buckets, got %d", len(s.Trend))
	}
	if s.Trend[0].Start.Hour() != 9 || s.Trend[0].Requests != 2 {
		t.Errorf("unexpected first hour bucket: %+v", s.Trend[0])
	}
}

func TestSuggest_DominantModel(t *testing.T) {
	base := time.Now()
	var records []history.Record
	// gpt-4o carries 90% of spend.
	for i := 0; i < 9; i++ {
		records = append(records, rec("alice", "openai:gpt-4o", "gpt-4o", 1000, 1.0, true, base))
	}
	records = append(records, rec("alice", "anthropic:claude-3-haiku", "claude-3-haiku", 1000, 1.0, true, base))

	suggestions := SuggestOptimizations(records)

	var found *Suggestion
	for i := range suggestions {
		if suggestions[i].Kind == KindSwitchModel {
			found = &suggestions[i]
		}
	}
	if found == nil {
		t.Fatal("expected a switch_model suggestion")
	}
	if !closeTo(found.EstimatedSavings, 9.0*modelSwitchSavings) {
		t.Errorf("unexpected savings %.4f", found.EstimatedSavings)
	}
}

func TestSuggest_NoDominantModel(t *testing.T) {
	base := time.Now()
	records := []history.Record{
		rec("alice", "openai:gpt-4o", "gpt-4o", 100, 1.0, true, base),
		rec("alice", "anthropic:claude-3-haiku", "claude-3-haiku", 600, 1.0, true, base),
	}

	for _, s := range SuggestOptimizations(records) {
		if s.Kind == KindSwitchModel {
			t.Errorf("no model holds >60%% share, got %+v", s)
		}
	}
}

func TestSuggest_CachingOpportunity(t *testing.T) {
	base := time.Now()
	var records []history.Record
	// Three near-identical requests: same model, same token bucket.
	for i := 0; i < 3; i++ {
		records = append(records, rec("alice", "openai:gpt-4o", "gpt-4o", 1200, 0.50, true, base))
	}
	records = append(records, rec("alice", "openai:gpt-4o", "gpt-4o", 9000, 0.10, true, base))

	suggestions := SuggestOptimizations(records)

	var found *Suggestion
	for i := range suggestions {
		if suggestions[i].Kind == KindEnableCaching {
			found = &suggestions[i]
		}
	}
	if found == nil {
		t.Fatal("expected an enable_caching suggestion")
	}
	if !closeTo(found.EstimatedSavings, 1.50*cachingSavings) {
		t.Errorf("unexpected caching savings %.4f", found.EstimatedSavings)
	}
}

func TestSuggest_HighTokenUsage(t *testing.T) {
	base := time.Now()
	records := []history.Record{
		rec("alice", "openai:gpt-4o", "gpt-4o", 5000, 1.0, true, base),
		rec("alice", "openai:gpt-4o", "gpt-4o", 4000, 1.0, true, base),
	}

	var found bool
	for _, s := range SuggestOptimizations(records) {
		if s.Kind == KindTrimPrompts {
			found = true
			if !closeTo(s.EstimatedSavings, 2.0*trimSavings) {
				t.Errorf("unexpected trim savings %.4f", s.EstimatedSavings)
			}
		}
	}
	if !found {
		t.Error("expected a trim_prompts suggestion for 4500 avg tokens")
	}
}

func TestSuggest_Empty(t *testing.T) {
	if got := SuggestOptimizations(nil); got != nil {
		t.Errorf("expected nil for empty history, got %v", got)
	}
}

func TestSuggest_OrderedByPriority(t *testing.T) {
	base := time.Now()
	var records []history.Record
	for i := 0; i < 10; i++ {
		records = append(records, rec("alice", "openai:gpt-4o", "gpt-4o", 5000, 1.0, true, base))
	}

	suggestions := SuggestOptimizations(records)
	for i := 1; i < len(suggestions); i++ {
		if suggestions[i-1].Priority > suggestions[i].Priority {
			t.Errorf("suggestions not ordered by priority: %+v", suggestions)
		}
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
