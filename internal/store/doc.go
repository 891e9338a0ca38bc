// Package store provides the SQLite-backed journal of marketplace entries.
//
// The journal is append-only: every committed audit entry is one row keyed by
// its seq, with the tx id unique across the table. A marketplace is restored
// by reading the rows in seq order and replaying them.
//
// # Idempotency
//
// Appending an entry whose seq is already recorded succeeds only if the
// recorded row is identical (same tx id, kind, requester, subject and
// payload). Anything else is ErrConflict.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - A single connection: SQLite has one writer
//
// Open refuses a journal migrated by a newer build (ErrSchemaTooNew) and one
// holding entries of another encoding version (ErrJournalVersion).
//
// Payloads are stored as canonical JSON (see ir.MarshalCanonical) so the
// same entry always produces the same bytes.
package store
