package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk YAML shape for a pricing file:
//
//	default_rate_per_token: 0.00002
//	providers:
//	  - id: openai:gpt-4o
//	    model: gpt-4o
//	    input_per_1k: 0.0025
//	    output_per_1k: 0.01
//	    currency: USD
type fileFormat struct {
	DefaultRatePerToken float64     `yaml:"default_rate_per_token"`
	Providers           []fileEntry `yaml:"providers"`
}

type fileEntry struct {
	ID         string  `yaml:"id"`
	Model      string  `yaml:"model"`
	InputPer1K float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
	Currency   string  `yaml:"currency"`
}

// LoadFile reads a pricing file and atomically replaces the table contents.
// On any error the previous table is left in effect.
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read pricing file %q: %w", path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse pricing file %q: %w", path, err)
	}

	entries := make([]ProviderPricing, 0, len(f.Providers))
	for i, e := range f.Providers {
		if e.ID == "" {
			return fmt.Errorf("pricing file %q: provider %d has no id", path, i)
		}
		if e.InputPer1K < 0 || e.OutputPer1K < 0 {
			return fmt.Errorf("pricing file %q: provider %q has negative rates", path, e.ID)
		}
		currency := e.Currency
		if currency == "" {
			currency = "USD"
		}
		entries = append(entries, ProviderPricing{
			ProviderID:  e.ID,
			Model:       e.Model,
			InputPer1K:  e.InputPer1K,
			OutputPer1K: e.OutputPer1K,
			Currency:    currency,
		})
	}

	t.Update(entries, f.DefaultRatePerToken)
	return nil
}
