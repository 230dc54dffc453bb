// Package store provides the SQLite-backed journal of a viewq session.
//
// The journal is an append-only log with:
//   - Mutations: every applied mutation with its params
//   - Snapshots: the store content after each mutation, content-addressed
//   - Remote queries: every non-empty forwarded query of a remote pass
//   - Events: every analytics event emitted by a mutation
//
// # Patterns
//
// Logical time:
//   - All ordering uses seq INTEGER (the parser's logical clock), never
//     timestamps
//   - Queries order by seq ASC, id ASC COLLATE BINARY
//
// Content addressing:
//   - Snapshots are keyed by ir.SnapshotHash and written once; repeated
//     content shares a row
//   - Forwarded queries carry ir.QueryHash so identical requests group
//
// Replay:
//   - LatestSnapshot returns the snapshot of the highest-seq mutation,
//     which seeds the store of a resumed session
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All JSON columns hold RFC 8785 canonical JSON (see ir.MarshalCanonical).
package store
