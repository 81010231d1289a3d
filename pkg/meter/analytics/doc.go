// Package analytics builds cost summaries and optimization suggestions
// from usage history. All functions are pure reads over record slices:
// they never mutate engine state, and queries over empty ranges return
// zeroed summaries rather than errors.
package analytics
