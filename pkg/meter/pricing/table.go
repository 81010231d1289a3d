package pricing

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultRatePerToken is the flat fallback rate applied when a provider has
// no pricing entry: cost = (inputTokens + outputTokens) * rate. At 0.00002
// USD per token this prices unknown providers at $0.02 per 1K tokens.
const DefaultRatePerToken = 0.00002

// ProviderPricing is an immutable pricing snapshot for one provider/model.
type ProviderPricing struct {
	// ProviderID identifies the entry, conventionally "provider:model".
	ProviderID string

	// Model is the model name portion, kept for reporting.
	Model string

	// InputPer1K is the cost per 1000 input (prompt) tokens in USD.
	InputPer1K float64

	// OutputPer1K is the cost per 1000 output (completion) tokens in USD.
	OutputPer1K float64

	// Currency is the currency code. Always "USD" for now.
	Currency string

	// UpdatedAt is when this entry was last changed.
	UpdatedAt time.Time
}

// Table maps provider IDs to pricing and performs cost estimation.
// It is safe for concurrent use and supports atomic hot-swap of all
// entries via Update.
type Table struct {
	mu          sync.RWMutex
	entries     map[string]ProviderPricing
	defaultRate float64
	now         func() time.Time
}

// NewTable creates a pricing table seeded with Defaults(). The clock may
// be nil, in which case time.Now is used.
func NewTable(clock func() time.Time) *Table {
	if clock == nil {
		clock = time.Now
	}
	t := &Table{
		entries:     make(map[string]ProviderPricing),
		defaultRate: DefaultRatePerToken,
		now:         clock,
	}
	for _, p := range Defaults() {
		p.UpdatedAt = clock()
		t.entries[p.ProviderID] = p
	}
	return t
}

// Defaults returns the built-in pricing entries for common providers.
func Defaults() []ProviderPricing {
	return []ProviderPricing{
		{ProviderID: "openai:gpt-4o", Model: "gpt-4o", InputPer1K: 0.0025, OutputPer1K: 0.01, Currency: "USD"},
		{ProviderID: "openai:gpt-4o-mini", Model: "gpt-4o-mini", InputPer1K: 0.00015, OutputPer1K: 0.0006, Currency: "USD"},
		{ProviderID: "anthropic:claude-3-5-sonnet", Model: "claude-3-5-sonnet", InputPer1K: 0.003, OutputPer1K: 0.015, Currency: "USD"},
		{ProviderID: "anthropic:claude-3-haiku", Model: "claude-3-haiku", InputPer1K: 0.00025, OutputPer1K: 0.00125, Currency: "USD"},
		{ProviderID: "google:gemini-1.5-pro", Model: "gemini-1.5-pro", InputPer1K: 0.00125, OutputPer1K: 0.005, Currency: "USD"},
		{ProviderID: "google:gemini-1.5-flash", Model: "gemini-1.5-flash", InputPer1K: 0.000075, OutputPer1K: 0.0003, Currency: "USD"},
	}
}

// Lookup returns the pricing entry for a provider ID. It tries an exact
// match first, then a prefix match so "openai:gpt-4o-2024-08-06" resolves
// to the "openai:gpt-4o" entry.
func (t *Table) Lookup(providerID string) (ProviderPricing, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if p, ok := t.entries[providerID]; ok {
		return p, true
	}
	for id, p := range t.entries {
		if strings.HasPrefix(providerID, id) {
			return p, true
		}
	}
	return ProviderPricing{}, false
}

// Estimate returns the estimated cost in USD for the given token counts.
// Negative token counts are treated as zero. Estimate has no failure mode:
// an unknown or empty provider ID uses the default per-token rate. For a
// fixed provider the result is monotonic non-decreasing in both counts.
func (t *Table) Estimate(providerID string, inputTokens, outputTokens int) float64 {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}

	if providerID != "" {
		if p, ok := t.Lookup(providerID); ok {
			return float64(inputTokens)/1000.0*p.InputPer1K +
				float64(outputTokens)/1000.0*p.OutputPer1K
		}
	}

	t.mu.RLock()
	rate := t.defaultRate
	t.mu.RUnlock()
	return float64(inputTokens+outputTokens) * rate
}

// Set inserts or replaces a single pricing entry.
func (t *Table) Set(p ProviderPricing) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p.UpdatedAt = t.now()
	t.entries[p.ProviderID] = p
}

// Update atomically replaces the whole table. Concurrent readers see
// either the old set or the new set, never a partial mix. A defaultRate
// of zero keeps the current fallback rate.
func (t *Table) Update(entries []ProviderPricing, defaultRate float64) {
	next := make(map[string]ProviderPricing, len(entries))
	now := t.now()
	for _, p := range entries {
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
		next[p.ProviderID] = p
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = next
	if defaultRate > 0 {
		t.defaultRate = defaultRate
	}
}

// Providers returns all known provider IDs, sorted.
func (t *Table) Providers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRate returns the per-token fallback rate.
func (t *Table) DefaultRate() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.defaultRate
}
