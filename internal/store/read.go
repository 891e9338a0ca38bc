package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/marketplace/internal/ir"
)

const selectEntries = `
	SELECT seq, tx_id, kind, requester, subject, payload
	FROM entries`

// ReadEntries returns every journaled entry in seq order.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadEntries(ctx context.Context) ([]ir.Entry, error) {
	return s.queryEntries(ctx, selectEntries+` ORDER BY seq ASC`)
}

// ReadEntriesSince returns entries with seq greater than after, in seq order.
func (s *Store) ReadEntriesSince(ctx context.Context, after int64) ([]ir.Entry, error) {
	return s.queryEntries(ctx, selectEntries+` WHERE seq > ? ORDER BY seq ASC`, after)
}

// ReadEntriesByKind returns entries of one kind in seq order.
func (s *Store) ReadEntriesByKind(ctx context.Context, kind ir.Kind) ([]ir.Entry, error) {
	return s.queryEntries(ctx, selectEntries+` WHERE kind = ? ORDER BY seq ASC`, string(kind))
}

// ReadEntriesBySubject returns entries about one identity (a user or a store)
// in seq order.
func (s *Store) ReadEntriesBySubject(ctx context.Context, subject ir.Identity) ([]ir.Entry, error) {
	return s.queryEntries(ctx, selectEntries+` WHERE subject = ? ORDER BY seq ASC`, marshalIdentity(subject))
}

// ReadEntry retrieves a single entry by seq.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEntry(ctx context.Context, seq int64) (ir.Entry, error) {
	return scanEntry(s.db.QueryRowContext(ctx, selectEntries+` WHERE seq = ?`, seq))
}

// LastSeq returns the highest recorded seq, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM entries`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ir.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []ir.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (ir.Entry, error) {
	var (
		e                  ir.Entry
		kind               string
		requester, subject string
		payloadJSON        string
	)
	if err := row.Scan(&e.Seq, &e.TxID, &kind, &requester, &subject, &payloadJSON); err != nil {
		return ir.Entry{}, err
	}

	e.Kind = ir.Kind(kind)
	if !e.Kind.Valid() {
		return ir.Entry{}, fmt.Errorf("entry %d: unknown kind %q", e.Seq, kind)
	}

	var err error
	if e.Requester, err = unmarshalIdentity("requester", requester); err != nil {
		return ir.Entry{}, fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	if e.Subject, err = unmarshalIdentity("subject", subject); err != nil {
		return ir.Entry{}, fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	if e.Payload, err = unmarshalPayload(payloadJSON); err != nil {
		return ir.Entry{}, fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	return e, nil
}
