package market

import (
	"context"
	"fmt"

	"github.com/roach88/marketplace/internal/ir"
)

// ReplayError reports the journal entry at which replay diverged.
type ReplayError struct {
	Seq    int64
	Reason string
	Err    error
}

func (e *ReplayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("replay entry %d: %s: %v", e.Seq, e.Reason, e.Err)
	}
	return fmt.Sprintf("replay entry %d: %s", e.Seq, e.Reason)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}

// Replay rebuilds a marketplace from journaled entries, oldest first. Every
// entry is re-executed under its recorded requester and tx id, so the rebuilt
// log carries the same seqs, tx ids and subjects as the input. Replayed entries are not written to the
// journal, but a journal passed in opts receives every later mutation.
func Replay(ctx context.Context, entries []ir.Entry, opts ...Option) (*Marketplace, error) {
	if len(entries) == 0 {
		return nil, &ReplayError{Seq: 1, Reason: "journal is empty"}
	}

	genesis := entries[0]
	if genesis.Kind != ir.KindNewMarketplace {
		return nil, &ReplayError{Seq: genesis.Seq, Reason: fmt.Sprintf("first entry is %s, want %s", genesis.Kind, ir.KindNewMarketplace)}
	}
	if genesis.Seq != 1 {
		return nil, &ReplayError{Seq: genesis.Seq, Reason: "first entry must have seq 1"}
	}
	if genesis.Requester == ir.ZeroIdentity {
		return nil, &ReplayError{Seq: genesis.Seq, Reason: "deployer is the zero identity"}
	}
	if want := ir.MarketAddress(genesis.Requester); genesis.Subject != want {
		return nil, &ReplayError{Seq: genesis.Seq, Reason: fmt.Sprintf("marketplace address %s, derived %s", genesis.Subject.Hex(), want.Hex())}
	}

	m := newMarketplace(genesis.Requester, opts)
	m.mu.Lock()
	_, err := m.commit(ctx, genesis, nil, false)
	m.mu.Unlock()
	if err != nil {
		return nil, &ReplayError{Seq: genesis.Seq, Reason: "genesis", Err: err}
	}

	for _, e := range entries[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.replayEntry(ctx, e); err != nil {
			return nil, err
		}
	}

	m.logger.Info("journal replayed", "entries", len(entries), "stores", m.StoresNum())
	return m, nil
}

func (m *Marketplace) replayEntry(ctx context.Context, e ir.Entry) error {
	if want := m.log.NextSeq(); e.Seq != want {
		return &ReplayError{Seq: e.Seq, Reason: fmt.Sprintf("seq gap, want %d", want)}
	}
	if e.TxID == "" {
		return &ReplayError{Seq: e.Seq, Reason: "entry has no tx id"}
	}

	var err error
	switch e.Kind {
	case ir.KindAdminAdded:
		_, err = m.mutateRole(ctx, e.Requester, e.Subject, e.Kind, m.roles.PlanAddAdmin, e.TxID)
	case ir.KindAdminDeleted:
		_, err = m.mutateRole(ctx, e.Requester, e.Subject, e.Kind, m.roles.PlanDeleteAdmin, e.TxID)
	case ir.KindApprStoreOwnerAdded:
		_, err = m.mutateRole(ctx, e.Requester, e.Subject, e.Kind, m.roles.PlanAddApprovedStoreOwner, e.TxID)
	case ir.KindApprStoreOwnerDeleted:
		_, err = m.mutateRole(ctx, e.Requester, e.Subject, e.Kind, m.roles.PlanDeleteApprovedStoreOwner, e.TxID)
	case ir.KindNewStore:
		return m.replayStore(ctx, e)
	default:
		return &ReplayError{Seq: e.Seq, Reason: fmt.Sprintf("unsupported entry kind %q", e.Kind)}
	}
	if err != nil {
		return &ReplayError{Seq: e.Seq, Reason: string(e.Kind) + " rejected", Err: err}
	}
	return nil
}

func (m *Marketplace) replayStore(ctx context.Context, e ir.Entry) error {
	// Check the derived address before committing, so a mismatch leaves the
	// partially rebuilt marketplace without a phantom store.
	m.mu.RLock()
	next := uint64(m.stores.Len())
	m.mu.RUnlock()

	if id, ok := e.Payload.Int("id"); ok && uint64(id) != next {
		return &ReplayError{Seq: e.Seq, Reason: fmt.Sprintf("store id %d, want %d", id, next)}
	}
	if want := ir.StoreAddress(m.address, next); e.Subject != want {
		return &ReplayError{Seq: e.Seq, Reason: fmt.Sprintf("store address %s, derived %s", e.Subject.Hex(), want.Hex())}
	}

	if _, _, err := m.createStore(ctx, e.Requester, e.Payload.String("name"), e.TxID); err != nil {
		return &ReplayError{Seq: e.Seq, Reason: string(e.Kind) + " rejected", Err: err}
	}
	return nil
}
