// Package storage provides pluggable persistence for usage records.
//
// The engine works entirely in memory; a Store is the optional durable
// sink behind it. Two backends are provided:
//
//   - MemoryStore: fast, no persistence, the default and the test backend
//   - SQLiteStore: durable single-instance storage using WAL mode with
//     periodic checkpoints
//
// Backends must be safe for concurrent use.
package storage
