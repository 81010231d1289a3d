package pricing

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTable_EstimateKnownProvider(t *testing.T) {
	tbl := NewTable(nil)

	// gpt-4o: $0.0025/1K in, $0.01/1K out.
	cost := tbl.Estimate("openai:gpt-4o", 1000, 1000)
	want := 0.0025 + 0.01
	if !closeTo(cost, want) {
		t.Errorf("expected %.6f, got %.6f", want, cost)
	}
}

func TestTable_EstimatePrefixMatch(t *testing.T) {
	tbl := NewTable(nil)

	// Dated model variants should resolve to the base entry.
	exact := tbl.Estimate("openai:gpt-4o", 500, 500)
	dated := tbl.Estimate("openai:gpt-4o-2024-08-06", 500, 500)
	if !closeTo(exact, dated) {
		t.Errorf("prefix match should price like base model: %.6f vs %.6f", exact, dated)
	}
}

func TestTable_EstimateUnknownProviderFallback(t *testing.T) {
	tbl := NewTable(nil)

	cost := tbl.Estimate("nonexistent", 1000, 1000)
	want := 2000 * DefaultRatePerToken
	if !closeTo(cost, want) {
		t.Errorf("expected default-rate cost %.6f, got %.6f", want, cost)
	}
	if cost <= 0 {
		t.Error("fallback cost must be positive for nonzero tokens")
	}
}

func TestTable_EstimateMonotonic(t *testing.T) {
	tbl := NewTable(nil)

	cases := []struct {
		provider string
	}{
		{"openai:gpt-4o"},
		{"anthropic:claude-3-haiku"},
		{"unknown-provider"},
	}

	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			prev := -1.0
			for _, n := range []int{0, 10, 100, 1000, 100000} {
				cost := tbl.Estimate(tc.provider, n, n)
				if cost < prev {
					t.Errorf("estimate not monotonic at %d tokens: %.6f < %.6f", n, cost, prev)
				}
				prev = cost
			}
		})
	}
}

func TestTable_EstimateNegativeTokens(t *testing.T) {
	tbl := NewTable(nil)

	if cost := tbl.Estimate("openai:gpt-4o", -5, -5); cost != 0 {
		t.Errorf("negative tokens should estimate as zero, got %.6f", cost)
	}
}

func TestTable_UpdateAtomicSwap(t *testing.T) {
	tbl := NewTable(nil)

	tbl.Update([]ProviderPricing{
		{ProviderID: "acme:basic", InputPer1K: 0.001, OutputPer1K: 0.002, Currency: "USD"},
	}, 0.0001)

	if _, ok := tbl.Lookup("openai:gpt-4o"); ok {
		t.Error("old entries should be gone after Update")
	}
	if _, ok := tbl.Lookup("acme:basic"); !ok {
		t.Error("new entry should be present after Update")
	}
	if tbl.DefaultRate() != 0.0001 {
		t.Errorf("default rate should be replaced, got %.6f", tbl.DefaultRate())
	}
}

func TestTable_Providers(t *testing.T) {
	tbl := NewTable(nil)

	ids := tbl.Providers()
	if len(ids) != len(Defaults()) {
		t.Fatalf("expected %d providers, got %d", len(Defaults()), len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Errorf("provider list not sorted: %q >= %q", ids[i-1], ids[i])
		}
	}
}

func TestTable_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")

	content := `
default_rate_per_token: 0.00005
providers:
  - id: acme:fast
    model: fast
    input_per_1k: 0.0005
    output_per_1k: 0.001
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tbl := NewTable(nil)
	if err := tbl.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	p, ok := tbl.Lookup("acme:fast")
	if !ok {
		t.Fatal("expected acme:fast entry after load")
	}
	if p.Currency != "USD" {
		t.Errorf("currency should default to USD, got %q", p.Currency)
	}
	if tbl.DefaultRate() != 0.00005 {
		t.Errorf("default rate not applied, got %.6f", tbl.DefaultRate())
	}
}

func TestTable_LoadFileInvalidKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")

	if err := os.WriteFile(path, []byte("providers: [{model: nameless}]"), 0o644); err != nil {
		t.Fatal(err)
	}

	tbl := NewTable(nil)
	if err := tbl.LoadFile(path); err == nil {
		t.Fatal("expected error for entry without id")
	}
	if _, ok := tbl.Lookup("openai:gpt-4o"); !ok {
		t.Error("previous table should survive a failed load")
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
