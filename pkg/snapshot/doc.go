// Package snapshot defines staging contracts for saving and restoring
// serialized context state between logical sessions, plus a small keeper that
// orchestrates capture/restore against the core go-stores serializer.
//
// Responsibilities:
//   - Store only loads/saves a single Snapshot for a single Ref.
//   - Keeper serializes a live context into a Store entry and applies a
//     stored entry back onto a context.
//   - Merge layers snapshots so a base snapshot can be filled in under
//     per-session overrides before restoring.
//
// Everything here is in-memory staging; durable persistence is deliberately
// out of scope. Consumers supply their own Store implementation when they
// need anything beyond the bundled MemoryStore.
package snapshot
