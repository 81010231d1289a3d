// Tollgate is a usage-budget admission controller for metered AI backends.
//
// It decides, per request, whether a call to a pay-per-use provider may
// proceed under per-user budgets and rate limits, estimates costs before
// execution, records actual spend afterwards, and raises alerts as users
// approach their limits.
//
// Usage:
//
//	# Validate a configuration file
//	tollgate validate --config tollgate.yaml
//
//	# Report spend from a usage database
//	tollgate report --db data/tollgate.db --from 2026-08-01 --to 2026-08-31
//
//	# Show version information
//	tollgate version
package main

func main() {
	Execute()
}
