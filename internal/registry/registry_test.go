package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/marketplace/internal/ir"
)

var (
	market = ir.MarketAddress(ir.MustParseIdentity("0x1000000000000000000000000000000000000001"))
	owner1 = ir.MustParseIdentity("0x2000000000000000000000000000000000000001")
	owner2 = ir.MustParseIdentity("0x2000000000000000000000000000000000000002")
)

func create(t *testing.T, r *Registry, owner ir.Identity, name string) *StoreLogic {
	t.Helper()
	rec, err := r.Plan(owner, name)
	require.NoError(t, err)
	return r.Register(rec)
}

func TestCreate_SeedsSentinel(t *testing.T) {
	r := New(market)

	inst := create(t, r, owner1, "Cars")

	assert.Equal(t, uint64(42), inst.Dummy())
	assert.Equal(t, owner1, inst.Owner())
	assert.Equal(t, "Cars", inst.Name())
	assert.Equal(t, market, inst.Market())
	assert.Equal(t, ir.StoreAddress(market, 0), inst.Address())
}

func TestPlan_DoesNotMutate(t *testing.T) {
	r := New(market)

	first, err := r.Plan(owner1, "Cars")
	require.NoError(t, err)
	again, err := r.Plan(owner1, "Cars")
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.Equal(t, 0, r.Len())
}

func TestCreate_ThreeStoresIndexAligned(t *testing.T) {
	r := New(market)
	for _, name := range []string{"Cars", "Bikes", "TRuck"} {
		create(t, r, owner1, name)
	}

	addrs, meta := r.Stores()

	require.Len(t, addrs, 3)
	require.Len(t, meta, 3)
	assert.Equal(t, 3, r.Len())
	for i, name := range []string{"Cars", "Bikes", "TRuck"} {
		assert.Equal(t, name, meta[i].Name)
		assert.Equal(t, owner1, meta[i].Owner)
		assert.Equal(t, uint64(i), meta[i].ID)

		inst, err := r.At(addrs[i])
		require.NoError(t, err)
		assert.Equal(t, name, inst.Name())
	}
}

func TestCreate_AddressesUnique(t *testing.T) {
	r := New(market)
	seen := map[ir.Identity]bool{}
	for i := 0; i < 20; i++ {
		inst := create(t, r, owner1, "Store")
		assert.False(t, seen[inst.Address()])
		seen[inst.Address()] = true
	}
}

func TestStores_EmptyRegistry(t *testing.T) {
	addrs, meta := New(market).Stores()
	assert.NotNil(t, addrs)
	assert.NotNil(t, meta)
	assert.Len(t, addrs, 0)
	assert.Len(t, meta, 0)
}

func TestPlan_RejectsBadNames(t *testing.T) {
	r := New(market)
	for _, name := range []string{"", "   ", strings.Repeat("x", 33)} {
		_, err := r.Plan(owner1, name)
		assert.True(t, ir.IsInvalidArgument(err), "name %q", name)
	}
	assert.Equal(t, 0, r.Len())
}

func TestNormalizeName(t *testing.T) {
	name, ok := NormalizeName("  Café ")
	require.True(t, ok)
	assert.Equal(t, "Café", name)

	_, ok = NormalizeName(strings.Repeat("x", 32))
	assert.True(t, ok)
}

func TestAt_UnknownAddress(t *testing.T) {
	_, err := New(market).At(owner1)
	assert.True(t, ir.IsNotFound(err))
}

func TestGetAndByOwner(t *testing.T) {
	r := New(market)
	create(t, r, owner1, "Cars")
	create(t, r, owner2, "Boats")
	create(t, r, owner1, "Bikes")

	inst, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Boats", inst.Name())
	_, ok = r.Get(3)
	assert.False(t, ok)

	mine := r.ByOwner(owner1)
	require.Len(t, mine, 2)
	assert.Equal(t, "Cars", mine[0].Name)
	assert.Equal(t, "Bikes", mine[1].Name)
	assert.Empty(t, r.ByOwner(market))
}
