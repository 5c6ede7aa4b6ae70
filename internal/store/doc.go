// Package store provides SQLite-backed durable storage for exchange records.
//
// The store keeps two tables:
//   - exchange_records: one row per exchange record, payload base64-encoded
//     with a domain-separated SHA-256 digest (ir.PayloadDigest)
//   - activity_log: notifications attached to related entities
//
// # Concurrency
//
// Every record row carries a version counter. UpdateRecord only writes when
// the caller's version matches the stored one and bumps it on success, so
// two writers that both read version N cannot both commit: the loser gets
// ErrConflict. Per-record serialization of whole lifecycle operations is
// the engine's job (engine.Locker); the version check is the last line.
//
// # Deterministic Query Results
//
// List queries are ordered by created_at ASC, id ASC COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
