package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/marketplace/internal/ir"
)

// ErrConflict is returned when an entry collides with a different recorded
// entry at the same seq or tx id.
var ErrConflict = errors.New("journal conflict")

// AppendEntry records a committed entry.
// Uses ON CONFLICT DO NOTHING for idempotency: re-appending an identical entry
// succeeds, any other collision on seq or tx id returns ErrConflict.
//
// The payload is serialized to canonical JSON so a re-append of the same
// entry compares byte for byte.
func (s *Store) AppendEntry(ctx context.Context, e ir.Entry) error {
	if e.Seq <= 0 {
		return fmt.Errorf("append entry: seq must be positive, got %d", e.Seq)
	}
	if e.TxID == "" {
		return fmt.Errorf("append entry %d: empty tx id", e.Seq)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("append entry %d: unknown kind %q", e.Seq, e.Kind)
	}

	payloadJSON, err := marshalPayload(e.Payload)
	if err != nil {
		return fmt.Errorf("append entry %d: %w", e.Seq, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append entry %d: begin tx: %w", e.Seq, err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO entries
		(seq, tx_id, kind, requester, subject, payload, journal_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		e.Seq,
		e.TxID,
		string(e.Kind),
		marshalIdentity(e.Requester),
		marshalIdentity(e.Subject),
		payloadJSON,
		ir.JournalVersion,
	)
	if err != nil {
		return fmt.Errorf("append entry %d: insert: %w", e.Seq, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append entry %d: rows affected: %w", e.Seq, err)
	}

	if rowsAffected == 0 {
		// Conflict - compare with the row that holds this seq, if any.
		existing, err := scanEntry(tx.QueryRowContext(ctx, selectEntries+` WHERE seq = ?`, e.Seq))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("append entry %d: %w: tx id %s already recorded", e.Seq, ErrConflict, e.TxID)
		}
		if err != nil {
			return fmt.Errorf("append entry %d: read existing: %w", e.Seq, err)
		}
		existingJSON, err := marshalPayload(existing.Payload)
		if err != nil {
			return fmt.Errorf("append entry %d: %w", e.Seq, err)
		}
		if existing.TxID != e.TxID ||
			existing.Kind != e.Kind ||
			existing.Requester != e.Requester ||
			existing.Subject != e.Subject ||
			existingJSON != payloadJSON {
			return fmt.Errorf("append entry %d: %w: seq already holds tx %s", e.Seq, ErrConflict, existing.TxID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append entry %d: commit: %w", e.Seq, err)
	}
	return nil
}
