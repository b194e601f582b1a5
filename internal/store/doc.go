// Package store provides SQLite-backed storage of mapping runs.
//
// A run records the canonical mapping, the rules of every tier, the issues
// raised and the reactions still pending curation. Runs are append-only and
// identified by a UUID; their order is a logical seq assigned on save.
//
// # Determinism
//
//   - Every read orders by its primary key columns with COLLATE BINARY.
//   - Clauses and identifier lists are stored as RFC 8785 canonical JSON.
//   - Saving a run whose ID already exists is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
