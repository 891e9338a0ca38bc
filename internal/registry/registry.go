package registry

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/marketplace/internal/ir"
)

// OpCreateStore is the operation name used in errors and audit logs.
const OpCreateStore = "createStore"

// Sentinel is the value every freshly provisioned StoreLogic reports from
// Dummy. Observers use it to confirm the instance exists and was seeded.
const Sentinel uint64 = 42

// MaxNameBytes bounds a store name to a fixed 32-byte slot.
const MaxNameBytes = 32

// Store is the registry record of one provisioned store.
type Store struct {
	ID      uint64      `json:"id"`
	Name    string      `json:"name"`
	Owner   ir.Identity `json:"owner"`
	Address ir.Identity `json:"address"`
}

// Metadata is the per-store detail returned alongside addresses by Stores.
type Metadata struct {
	ID    uint64      `json:"id"`
	Name  string      `json:"name"`
	Owner ir.Identity `json:"owner"`
}

// StoreLogic is a provisioned store instance. Its accessors are the store's
// own query interface.
type StoreLogic struct {
	record Store
	market ir.Identity
	dummy  uint64
}

// Dummy returns the sentinel the instance was seeded with.
func (s *StoreLogic) Dummy() uint64 { return s.dummy }

// Address returns the store's minted address.
func (s *StoreLogic) Address() ir.Identity { return s.record.Address }

// Owner returns the identity that created the store.
func (s *StoreLogic) Owner() ir.Identity { return s.record.Owner }

// Name returns the store's name.
func (s *StoreLogic) Name() string { return s.record.Name }

// ID returns the store's creation sequence number.
func (s *StoreLogic) ID() uint64 { return s.record.ID }

// Market returns the address of the marketplace that provisioned the store.
func (s *StoreLogic) Market() ir.Identity { return s.market }

// Record returns the registry record.
func (s *StoreLogic) Record() Store { return s.record }

// Registry is the factory and ordered collection of stores of one marketplace.
type Registry struct {
	market ir.Identity
	arena  []*StoreLogic
	byAddr map[ir.Identity]int
}

// New creates an empty registry for the marketplace at market.
func New(market ir.Identity) *Registry {
	return &Registry{
		market: market,
		byAddr: make(map[ir.Identity]int),
	}
}

// NormalizeName NFC-normalizes and trims a store name and checks its length.
func NormalizeName(name string) (string, bool) {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" || len(name) > MaxNameBytes {
		return "", false
	}
	return name, true
}

// Plan computes the record createStore would register for owner. It validates
// the name but does not check owner's role; that is the caller's concern.
func (r *Registry) Plan(owner ir.Identity, name string) (Store, error) {
	normalized, ok := NormalizeName(name)
	if !ok {
		return Store{}, ir.NewInvalidArgumentError(OpCreateStore, owner,
			"store name must be 1 to 32 bytes after trimming")
	}

	id := uint64(len(r.arena))
	return Store{
		ID:      id,
		Name:    normalized,
		Owner:   owner,
		Address: ir.StoreAddress(r.market, id),
	}, nil
}

// Register provisions the StoreLogic for a planned record and appends it.
// The record must come from Plan on the current state.
func (r *Registry) Register(s Store) *StoreLogic {
	inst := &StoreLogic{record: s, market: r.market, dummy: Sentinel}
	r.byAddr[s.Address] = len(r.arena)
	r.arena = append(r.arena, inst)
	return inst
}

// Len returns the number of registered stores.
func (r *Registry) Len() int {
	return len(r.arena)
}

// Stores returns two index-aligned sequences: store addresses and their
// metadata. Both always have the same length.
func (r *Registry) Stores() ([]ir.Identity, []Metadata) {
	addrs := make([]ir.Identity, len(r.arena))
	meta := make([]Metadata, len(r.arena))
	for i, s := range r.arena {
		addrs[i] = s.record.Address
		meta[i] = Metadata{ID: s.record.ID, Name: s.record.Name, Owner: s.record.Owner}
	}
	return addrs, meta
}

// At resolves a store instance by address.
func (r *Registry) At(address ir.Identity) (*StoreLogic, error) {
	idx, ok := r.byAddr[address]
	if !ok {
		return nil, ir.NewNotFoundError(address)
	}
	return r.arena[idx], nil
}

// Get returns the store with the given sequence number.
func (r *Registry) Get(id uint64) (*StoreLogic, bool) {
	if id >= uint64(len(r.arena)) {
		return nil, false
	}
	return r.arena[id], true
}

// ByOwner returns the records of the stores owner created, in creation order.
func (r *Registry) ByOwner(owner ir.Identity) []Store {
	out := []Store{}
	for _, s := range r.arena {
		if s.record.Owner == owner {
			out = append(out, s.record)
		}
	}
	return out
}
