package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/market"
)

var (
	deployer = ir.MustParseIdentity("0x00000000000000000000000000000000000000a1")
	owner    = ir.MustParseIdentity("0x00000000000000000000000000000000000000B1")
)

func testEntry(seq int64, kind ir.Kind, subject ir.Identity) ir.Entry {
	return ir.Entry{
		Seq:       seq,
		TxID:      fmt.Sprintf("tx-%d", seq),
		Kind:      kind,
		Requester: deployer,
		Subject:   subject,
		Payload:   ir.Payload{"from": "Unassigned", "to": "Administrator"},
	}
}

func TestAppendEntry_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := ir.Entry{
		Seq:       1,
		TxID:      "tx-1",
		Kind:      ir.KindNewStore,
		Requester: owner,
		Subject:   ir.StoreAddress(ir.MarketAddress(deployer), 0),
		Payload:   ir.Payload{"id": uint64(0), "name": "Cars"},
	}
	require.NoError(t, s.AppendEntry(ctx, e))

	got, err := s.ReadEntry(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, e.TxID, got.TxID)
	assert.Equal(t, e.Kind, got.Kind)
	assert.Equal(t, e.Requester, got.Requester)
	assert.Equal(t, e.Subject, got.Subject)
	assert.Equal(t, "Cars", got.Payload.String("name"))
	id, ok := got.Payload.Int("id")
	require.True(t, ok)
	assert.Equal(t, int64(0), id)

	var raw string
	require.NoError(t, s.db.QueryRow("SELECT payload FROM entries WHERE seq = 1").Scan(&raw))
	assert.Equal(t, `{"id":0,"name":"Cars"}`, raw)

	var requester string
	require.NoError(t, s.db.QueryRow("SELECT requester FROM entries WHERE seq = 1").Scan(&requester))
	assert.Equal(t, "0x00000000000000000000000000000000000000b1", requester)
}

func TestAppendEntry_IdenticalIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	e := testEntry(1, ir.KindAdminAdded, owner)

	require.NoError(t, s.AppendEntry(ctx, e))
	require.NoError(t, s.AppendEntry(ctx, e))

	entries, err := s.ReadEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppendEntry_Conflicts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.AppendEntry(ctx, testEntry(1, ir.KindAdminAdded, owner)))

	sameSeq := testEntry(1, ir.KindAdminDeleted, owner)
	err := s.AppendEntry(ctx, sameSeq)
	assert.ErrorIs(t, err, ErrConflict)

	sameTx := testEntry(2, ir.KindAdminAdded, owner)
	sameTx.TxID = "tx-1"
	err = s.AppendEntry(ctx, sameTx)
	assert.ErrorIs(t, err, ErrConflict)

	otherPayload := testEntry(1, ir.KindAdminAdded, owner)
	otherPayload.Payload = ir.Payload{"from": "Administrator", "to": "Administrator"}
	err = s.AppendEntry(ctx, otherPayload)
	assert.ErrorIs(t, err, ErrConflict)

	n, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAppendEntry_Rejects(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	bad := []ir.Entry{
		{Seq: 0, TxID: "a", Kind: ir.KindAdminAdded},
		{Seq: 1, TxID: "", Kind: ir.KindAdminAdded},
		{Seq: 1, TxID: "a", Kind: ir.Kind("Bogus")},
		{Seq: 1, TxID: "a", Kind: ir.KindAdminAdded, Payload: ir.Payload{"f": 1.5}},
	}
	for _, e := range bad {
		assert.Error(t, s.AppendEntry(ctx, e), "%+v", e)
	}
}

func TestReadEntries_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	entries, err := s.ReadEntries(ctx)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	n, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = s.ReadEntry(ctx, 7)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestReadEntries_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	other := ir.MustParseIdentity("0x00000000000000000000000000000000000000c1")
	require.NoError(t, s.AppendEntry(ctx, testEntry(1, ir.KindAdminAdded, owner)))
	require.NoError(t, s.AppendEntry(ctx, testEntry(2, ir.KindApprStoreOwnerAdded, other)))
	require.NoError(t, s.AppendEntry(ctx, testEntry(3, ir.KindAdminAdded, other)))

	byKind, err := s.ReadEntriesByKind(ctx, ir.KindAdminAdded)
	require.NoError(t, err)
	require.Len(t, byKind, 2)
	assert.Equal(t, int64(1), byKind[0].Seq)
	assert.Equal(t, int64(3), byKind[1].Seq)

	bySubject, err := s.ReadEntriesBySubject(ctx, other)
	require.NoError(t, err)
	require.Len(t, bySubject, 2)
	assert.Equal(t, int64(2), bySubject[0].Seq)

	since, err := s.ReadEntriesSince(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, since, 2)
}

func TestJournal_MarketplaceReplay(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	m, err := market.New(ctx, deployer, market.WithJournal(s), market.WithLogger(quiet))
	require.NoError(t, err)
	_, err = m.AddApprovedStoreOwner(ctx, deployer, owner)
	require.NoError(t, err)
	for _, name := range []string{"Cars", "Bikes"} {
		_, err = m.CreateStore(ctx, owner, name)
		require.NoError(t, err)
	}

	entries, err := s.ReadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	restored, err := market.Replay(ctx, entries, market.WithJournal(s), market.WithLogger(quiet))
	require.NoError(t, err)

	wantAddrs, wantMeta := m.Stores()
	gotAddrs, gotMeta := restored.Stores()
	assert.Equal(t, wantAddrs, gotAddrs)
	assert.Equal(t, wantMeta, gotMeta)
	assert.Equal(t, ir.ApprovedStoreOwner, restored.Role(owner))

	// The restored marketplace keeps journaling at the next seq.
	_, err = restored.CreateStore(ctx, owner, "TRuck")
	require.NoError(t, err)
	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), last)
}
