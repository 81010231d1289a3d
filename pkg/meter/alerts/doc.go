// Package alerts creates and retains budget alerts for threshold crossings.
//
// Alerts are deduplicated: at most one unacknowledged alert exists per
// (user, scope, level) at a time, so a user hovering around a threshold
// does not generate an alert per request. Acknowledging an alert, or the
// underlying window resetting, clears the slot and allows the next
// crossing to fire again.
//
// Retention is handled externally: a periodic sweep calls PruneBefore with
// a cutoff (see the retention package).
package alerts
