package harness

import (
	"fmt"

	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/registry"
)

// evaluate checks assertions against the current marketplace state and
// returns one message per failure. where prefixes each message.
func (h *Harness) evaluate(where string, assertions []Assertion) []string {
	var errors []string
	for i, a := range assertions {
		if err := h.evaluateAssertion(a); err != nil {
			errors = append(errors, fmt.Sprintf("%s: assertion %d (%s): %v", where, i, a.Type, err))
		}
	}
	return errors
}

func (h *Harness) evaluateAssertion(a Assertion) error {
	switch a.Type {
	case AssertRole:
		return h.assertRole(a)
	case AssertStoresNum:
		if got := h.market.StoresNum(); got != a.Count {
			return fmt.Errorf("stores_num = %d, want %d", got, a.Count)
		}
		return nil
	case AssertStores:
		return h.assertStores(a)
	case AssertSentinel:
		return h.assertSentinel(a)
	case AssertEntryCount:
		return h.assertEntryCount(a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func (h *Harness) assertRole(a Assertion) error {
	id, err := h.resolve(a.Account)
	if err != nil {
		return err
	}
	want, err := ir.ParseRole(a.Role)
	if err != nil {
		return err
	}
	if got := h.market.Role(id); got != want {
		return fmt.Errorf("role of %s = %s, want %s", a.Account, got, want)
	}
	return nil
}

// assertStores checks the index-aligned getStores view: equal lengths,
// names, owners and the minted address of every position.
func (h *Harness) assertStores(a Assertion) error {
	addrs, meta := h.market.Stores()
	if len(addrs) != len(meta) {
		return fmt.Errorf("getStores returned %d addresses and %d records", len(addrs), len(meta))
	}
	if len(meta) != len(a.Names) {
		return fmt.Errorf("got %d stores, want %d", len(meta), len(a.Names))
	}

	for i, name := range a.Names {
		if meta[i].Name != name {
			return fmt.Errorf("stores[%d].name = %q, want %q", i, meta[i].Name, name)
		}
		if meta[i].ID != uint64(i) {
			return fmt.Errorf("stores[%d].id = %d", i, meta[i].ID)
		}
		if want := ir.StoreAddress(h.market.Address(), uint64(i)); addrs[i] != want {
			return fmt.Errorf("stores[%d].address = %s, want %s", i, addrs[i].Hex(), want.Hex())
		}
		if len(a.Owners) == 0 {
			continue
		}
		owner, err := h.resolve(a.Owners[i])
		if err != nil {
			return err
		}
		if meta[i].Owner != owner {
			return fmt.Errorf("stores[%d].owner = %s, want %s", i, meta[i].Owner.Hex(), a.Owners[i])
		}
	}
	return nil
}

// assertSentinel resolves the store instance by address, the way a client
// attaches to a created store, and reads its sentinel.
func (h *Harness) assertSentinel(a Assertion) error {
	addrs, _ := h.market.Stores()
	if a.Index >= len(addrs) {
		return fmt.Errorf("no store at index %d (have %d)", a.Index, len(addrs))
	}
	inst, err := h.market.StoreAt(addrs[a.Index])
	if err != nil {
		return err
	}
	want := a.Value
	if want == 0 {
		want = registry.Sentinel
	}
	if got := inst.Dummy(); got != want {
		return fmt.Errorf("dummy() = %d, want %d", got, want)
	}
	return nil
}

func (h *Harness) assertEntryCount(a Assertion) error {
	var got int
	if a.Kind == "" {
		got = h.market.Log().Len()
	} else {
		kind, err := ir.ParseKind(a.Kind)
		if err != nil {
			return err
		}
		got = len(h.market.Log().OfKind(kind))
	}
	if got != a.Count {
		return fmt.Errorf("entry count = %d, want %d", got, a.Count)
	}
	return nil
}
