package market

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/marketplace/internal/audit"
	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/registry"
	"github.com/roach88/marketplace/internal/roles"
)

// Marketplace is the role-gated marketplace service.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialized; queries run under a shared lock.
type Marketplace struct {
	mu sync.RWMutex

	address  ir.Identity
	deployer ir.Identity

	roles  *roles.Registry
	stores *registry.Registry
	log    *audit.Log

	journal Journal
	txGen   TxGenerator
	logger  *slog.Logger
}

func newMarketplace(deployer ir.Identity, opts []Option) *Marketplace {
	address := ir.MarketAddress(deployer)
	m := &Marketplace{
		address:  address,
		deployer: deployer,
		roles:    roles.New(deployer),
		stores:   registry.New(address),
		log:      audit.NewLog(),
		txGen:    UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// New deploys a marketplace. The deployer becomes its sole Administrator and
// a NewMarketplace entry is recorded.
func New(ctx context.Context, deployer ir.Identity, opts ...Option) (*Marketplace, error) {
	if deployer == ir.ZeroIdentity {
		return nil, ir.NewInvalidArgumentError("", deployer, "deployer is the zero identity")
	}
	m := newMarketplace(deployer, opts)

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.commit(ctx, ir.Entry{
		TxID:      m.txGen.Generate(),
		Kind:      ir.KindNewMarketplace,
		Requester: deployer,
		Subject:   m.address,
		Payload:   ir.Payload{"version": ir.MarketVersion},
	}, nil, true)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// commit makes e durable (when journaled), runs apply and appends e to the
// audit log. Must be called with m.mu held for writing. If the journal write
// fails nothing is applied.
func (m *Marketplace) commit(ctx context.Context, e ir.Entry, apply func(), journaled bool) (ir.Entry, error) {
	e.Seq = m.log.NextSeq()
	if e.Payload == nil {
		e.Payload = ir.Payload{}
	}

	if journaled && m.journal != nil {
		if err := m.journal.AppendEntry(ctx, e); err != nil {
			m.logger.Error("journal write failed",
				"kind", e.Kind,
				"seq", e.Seq,
				"tx_id", e.TxID,
				"error", err,
			)
			return ir.Entry{}, fmt.Errorf("journal %s entry %d: %w", e.Kind, e.Seq, err)
		}
	}

	if apply != nil {
		apply()
	}
	e = m.log.Append(e)

	m.logger.Info("entry committed",
		"kind", e.Kind,
		"seq", e.Seq,
		"tx_id", e.TxID,
		"requester", e.Requester.Hex(),
		"subject", e.Subject.Hex(),
	)
	return e, nil
}

func (m *Marketplace) reject(op string, requester ir.Identity, err error) error {
	m.logger.Warn("operation rejected",
		"op", op,
		"requester", requester.Hex(),
		"code", ir.CodeOf(err),
		"error", err,
	)
	return err
}

// Address returns the marketplace's own address.
func (m *Marketplace) Address() ir.Identity {
	return m.address
}

// Deployer returns the identity that deployed the marketplace.
func (m *Marketplace) Deployer() ir.Identity {
	return m.deployer
}

// Role returns the role of id. Never fails; unknown identities are Unassigned.
func (m *Marketplace) Role(id ir.Identity) ir.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roles.Role(id)
}

// Members returns the identities holding role, in first-assignment order.
func (m *Marketplace) Members(role ir.Role) []ir.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roles.Members(role)
}

// AdminCount returns the number of Administrators.
func (m *Marketplace) AdminCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roles.AdminCount()
}

// AddAdmin grants target the Administrator role.
func (m *Marketplace) AddAdmin(ctx context.Context, requester, target ir.Identity) (ir.Entry, error) {
	return m.mutateRole(ctx, requester, target, ir.KindAdminAdded, m.roles.PlanAddAdmin, "")
}

// DeleteAdmin moves target to Unassigned. The last Administrator cannot be
// removed.
func (m *Marketplace) DeleteAdmin(ctx context.Context, requester, target ir.Identity) (ir.Entry, error) {
	return m.mutateRole(ctx, requester, target, ir.KindAdminDeleted, m.roles.PlanDeleteAdmin, "")
}

// AddApprovedStoreOwner grants target the ApprovedStoreOwner role.
func (m *Marketplace) AddApprovedStoreOwner(ctx context.Context, requester, target ir.Identity) (ir.Entry, error) {
	return m.mutateRole(ctx, requester, target, ir.KindApprStoreOwnerAdded, m.roles.PlanAddApprovedStoreOwner, "")
}

// DeleteApprovedStoreOwner moves target to Unassigned, whatever role it held.
// The last Administrator cannot be removed this way either.
func (m *Marketplace) DeleteApprovedStoreOwner(ctx context.Context, requester, target ir.Identity) (ir.Entry, error) {
	return m.mutateRole(ctx, requester, target, ir.KindApprStoreOwnerDeleted, m.roles.PlanDeleteApprovedStoreOwner, "")
}

type planFunc func(requester, target ir.Identity) (roles.Transition, error)

// mutateRole runs one role operation. A non-empty txID marks a replayed entry.
func (m *Marketplace) mutateRole(ctx context.Context, requester, target ir.Identity, kind ir.Kind, plan planFunc, txID string) (ir.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := plan(requester, target)
	if err != nil {
		return ir.Entry{}, m.reject(kindOp(kind), requester, err)
	}

	replaying := txID != ""
	if !replaying {
		txID = m.txGen.Generate()
	}
	return m.commit(ctx, ir.Entry{
		TxID:      txID,
		Kind:      kind,
		Requester: requester,
		Subject:   target,
		Payload:   ir.Payload{"from": t.From.String(), "to": t.To.String()},
	}, func() { m.roles.Apply(t) }, !replaying)
}

// CreateStore provisions a new store owned by requester, who must be an
// ApprovedStoreOwner.
func (m *Marketplace) CreateStore(ctx context.Context, requester ir.Identity, name string) (registry.Store, error) {
	s, _, err := m.createStore(ctx, requester, name, "")
	return s, err
}

func (m *Marketplace) createStore(ctx context.Context, requester ir.Identity, name, txID string) (registry.Store, ir.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.roles.Authorize(registry.OpCreateStore, requester, ir.ApprovedStoreOwner); err != nil {
		return registry.Store{}, ir.Entry{}, m.reject(registry.OpCreateStore, requester, err)
	}
	s, err := m.stores.Plan(requester, name)
	if err != nil {
		return registry.Store{}, ir.Entry{}, m.reject(registry.OpCreateStore, requester, err)
	}

	replaying := txID != ""
	if !replaying {
		txID = m.txGen.Generate()
	}
	e, err := m.commit(ctx, ir.Entry{
		TxID:      txID,
		Kind:      ir.KindNewStore,
		Requester: requester,
		Subject:   s.Address,
		Payload:   ir.Payload{"id": s.ID, "name": s.Name},
	}, func() { m.stores.Register(s) }, !replaying)
	if err != nil {
		return registry.Store{}, ir.Entry{}, err
	}
	return s, e, nil
}

// StoresNum returns the number of stores created so far.
func (m *Marketplace) StoresNum() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores.Len()
}

// Stores returns index-aligned store addresses and metadata, in creation
// order.
func (m *Marketplace) Stores() ([]ir.Identity, []registry.Metadata) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores.Stores()
}

// StoreAt resolves the store instance at address.
func (m *Marketplace) StoreAt(address ir.Identity) (*registry.StoreLogic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores.At(address)
}

// StoresOf returns the stores owner created, in creation order.
func (m *Marketplace) StoresOf(owner ir.Identity) []registry.Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores.ByOwner(owner)
}

// Watch registers a one-shot observer for the next entry of kind. Register
// before issuing the call whose entry you want to observe.
func (m *Marketplace) Watch(kind ir.Kind, opts ...audit.WatchOption) *audit.Watch {
	return m.log.Watch(kind, opts...)
}

// Log returns a read-only view of the audit log. Entries are appended only
// by the marketplace's own operations.
func (m *Marketplace) Log() audit.Reader {
	return m.log.View()
}

// Entries returns a snapshot of every audit entry.
func (m *Marketplace) Entries() []ir.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log.Entries()
}

func kindOp(kind ir.Kind) string {
	switch kind {
	case ir.KindAdminAdded:
		return roles.OpAddAdmin
	case ir.KindAdminDeleted:
		return roles.OpDeleteAdmin
	case ir.KindApprStoreOwnerAdded:
		return roles.OpAddApprovedStoreOwner
	case ir.KindApprStoreOwnerDeleted:
		return roles.OpDeleteApprovedStoreOwner
	case ir.KindNewStore:
		return registry.OpCreateStore
	}
	return string(kind)
}
