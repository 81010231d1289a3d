// Package pricing maintains the provider pricing table and estimates the
// cost of metered calls before they execute.
//
// Pricing entries are keyed by provider ID, conventionally the composite
// "provider:model" (e.g. "openai:gpt-4o"). Lookups try an exact match
// first, then a prefix match, then fall back to a flat default per-token
// rate so estimation never fails: an unknown provider is priced as
// (input+output) * DefaultRatePerToken.
//
// The table can be replaced atomically at runtime, loaded from a YAML
// file, and kept current with a file watcher (see Watcher).
package pricing
