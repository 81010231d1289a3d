// Package meter implements admission control and accounting for metered,
// pay-per-use AI backends.
//
// # Overview
//
// The Engine decides, per request, whether a call may proceed under a
// hierarchy of budgets and rate limits, estimates its cost before
// execution, records its actual cost afterwards, and raises alerts as
// users approach their limits. It coordinates the subpackages:
//
//   - pricing: provider pricing table and cost estimation
//   - ledger: per-user usage windows with lazy resets
//   - alerts: deduplicated threshold alerts
//   - history: bounded immutable usage history
//   - analytics: cost summaries and optimization suggestions
//   - storage: optional durable record persistence
//   - guard: the facade feature services call through
//
// # Usage
//
//	engine, err := meter.New(meter.Options{
//	    Config: meter.Config{Budget: meter.BudgetConfig{
//	        OperationCeiling:  0.50,
//	        DailyLimit:        10.00,
//	        MonthlyLimit:      200.00,
//	        RequestsPerMinute: 30,
//	        RequestsPerHour:   500,
//	        WarningPct:        80,
//	        CriticalPct:       95,
//	    }},
//	})
//
//	result := engine.CheckAdmission("user-1", "openai:gpt-4o",
//	    meter.TokenEstimate{Input: 1200, Output: 400})
//	if !result.Allowed {
//	    // result.Denial says why; result.Alternatives suggests cheaper providers
//	}
//
//	// after the provider call returns
//	engine.RecordUsage("user-1", "openai:gpt-4o", "generate", meter.Usage{
//	    Cost: 0.012, InputTokens: 1180, OutputTokens: 390, Success: true,
//	})
//
// A denial is a normal result value, never an error. CheckAdmission does
// not reserve capacity; callers that need strict no-overshoot semantics
// use Reserve/Commit/Release (the guard package does this).
//
// # Thread Safety
//
// All Engine methods are safe for concurrent use. Work for different
// users proceeds in parallel; operations on one user are serialized by
// that user's ledger lock.
package meter
