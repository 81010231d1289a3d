// Package ledger maintains per-user usage ledgers across rolling time windows.
//
// # Overview
//
// Each user has one ledger holding four usage windows:
//
//   - daily: resets when the local calendar date changes
//   - monthly: resets when the calendar month changes
//   - minute: resets 60 seconds after the window started
//   - hour: resets 3600 seconds after the window started
//
// Windows reset lazily: every operation refreshes stale windows before
// reading or writing them, so counters from an expired period never leak
// into the current one. There are no background timers.
//
// # Reservations
//
// The registry supports a reserve/commit/release protocol that pre-charges
// estimated cost before a metered call executes. Reserve charges the
// estimate into every window, Commit settles the difference against the
// actual cost, and Release unwinds a reservation whose call failed. This
// closes the check-then-act gap between an admission check and the
// corresponding usage record.
//
// # Thread Safety
//
// Ledgers are guarded by a per-user mutex so refreshes and increments for
// one user are atomic with respect to each other. Different users proceed
// fully in parallel.
package ledger
