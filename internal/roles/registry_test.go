package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/marketplace/internal/ir"
)

var (
	admin1 = ir.MustParseIdentity("0x1000000000000000000000000000000000000001")
	admin2 = ir.MustParseIdentity("0x1000000000000000000000000000000000000002")
	owner1 = ir.MustParseIdentity("0x2000000000000000000000000000000000000001")
	nobody = ir.MustParseIdentity("0x3000000000000000000000000000000000000001")
)

// apply plans and commits in one step, failing the test on rejection.
func apply(t *testing.T, plan func(req, target ir.Identity) (Transition, error), r *Registry, req, target ir.Identity) Transition {
	t.Helper()
	tr, err := plan(req, target)
	require.NoError(t, err)
	r.Apply(tr)
	return tr
}

func TestNew_FounderIsSoleAdmin(t *testing.T) {
	r := New(admin1)

	assert.Equal(t, ir.Administrator, r.Role(admin1))
	assert.Equal(t, 1, r.AdminCount())
	assert.Equal(t, []ir.Identity{admin1}, r.Members(ir.Administrator))
}

func TestRole_DefaultsToUnassigned(t *testing.T) {
	r := New(admin1)
	assert.Equal(t, ir.Unassigned, r.Role(nobody))
	assert.Equal(t, ir.Unassigned, r.Role(ir.ZeroIdentity))
}

func TestAddAdmin(t *testing.T) {
	r := New(admin1)

	tr := apply(t, r.PlanAddAdmin, r, admin1, admin2)

	assert.Equal(t, Transition{Op: OpAddAdmin, Target: admin2, From: ir.Unassigned, To: ir.Administrator}, tr)
	assert.Equal(t, ir.Administrator, r.Role(admin2))
	assert.Equal(t, 2, r.AdminCount())
}

func TestAddAdmin_Idempotent(t *testing.T) {
	r := New(admin1)
	apply(t, r.PlanAddAdmin, r, admin1, admin2)

	tr := apply(t, r.PlanAddAdmin, r, admin1, admin2)

	assert.True(t, tr.NoOp())
	assert.Equal(t, 2, r.AdminCount())
}

func TestDeleteAdmin(t *testing.T) {
	r := New(admin1)
	apply(t, r.PlanAddAdmin, r, admin1, admin2)

	apply(t, r.PlanDeleteAdmin, r, admin1, admin2)

	assert.Equal(t, ir.Unassigned, r.Role(admin2))
	assert.Equal(t, 1, r.AdminCount())
}

func TestDeleteAdmin_LastAdminRejected(t *testing.T) {
	r := New(admin1)

	_, err := r.PlanDeleteAdmin(admin1, admin1)

	require.Error(t, err)
	assert.True(t, ir.IsInvariantViolation(err))
	assert.Equal(t, ir.Administrator, r.Role(admin1))
}

func TestDeleteAdmin_SelfAllowedWhenOthersRemain(t *testing.T) {
	r := New(admin1)
	apply(t, r.PlanAddAdmin, r, admin1, admin2)

	apply(t, r.PlanDeleteAdmin, r, admin1, admin1)

	assert.Equal(t, ir.Unassigned, r.Role(admin1))
	assert.Equal(t, []ir.Identity{admin2}, r.Members(ir.Administrator))

	// admin1 lost its seat and can no longer manage roles
	_, err := r.PlanAddAdmin(admin1, admin1)
	assert.True(t, ir.IsAuthorizationError(err))
}

func TestDeleteAdmin_ClearsStoreOwner(t *testing.T) {
	r := New(admin1)
	apply(t, r.PlanAddApprovedStoreOwner, r, admin1, owner1)

	tr := apply(t, r.PlanDeleteAdmin, r, admin1, owner1)

	assert.Equal(t, ir.ApprovedStoreOwner, tr.From)
	assert.Equal(t, ir.Unassigned, tr.To)
	assert.Equal(t, ir.Unassigned, r.Role(owner1))
	assert.Empty(t, r.Members(ir.ApprovedStoreOwner))
}

func TestAddApprovedStoreOwner_OverwritesAdmin(t *testing.T) {
	r := New(admin1)
	apply(t, r.PlanAddAdmin, r, admin1, admin2)

	apply(t, r.PlanAddApprovedStoreOwner, r, admin1, admin2)

	assert.Equal(t, ir.ApprovedStoreOwner, r.Role(admin2))
	assert.Equal(t, 1, r.AdminCount())
}

func TestAddApprovedStoreOwner_CannotDemoteLastAdmin(t *testing.T) {
	r := New(admin1)

	_, err := r.PlanAddApprovedStoreOwner(admin1, admin1)

	assert.True(t, ir.IsInvariantViolation(err))
	assert.Equal(t, ir.Administrator, r.Role(admin1))
}

func TestDeleteApprovedStoreOwner_RoundTrip(t *testing.T) {
	r := New(admin1)
	apply(t, r.PlanAddApprovedStoreOwner, r, admin1, owner1)
	apply(t, r.PlanDeleteApprovedStoreOwner, r, admin1, owner1)

	assert.Equal(t, ir.Unassigned, r.Role(owner1))
	assert.Error(t, r.Authorize("createStore", owner1, ir.ApprovedStoreOwner))
}

func TestDeleteApprovedStoreOwner_ClearsAdmin(t *testing.T) {
	r := New(admin1)
	apply(t, r.PlanAddAdmin, r, admin1, admin2)

	tr := apply(t, r.PlanDeleteApprovedStoreOwner, r, admin1, admin2)

	assert.Equal(t, ir.Administrator, tr.From)
	assert.Equal(t, ir.Unassigned, r.Role(admin2))
	assert.Equal(t, 1, r.AdminCount())
}

func TestDeleteApprovedStoreOwner_CannotDemoteLastAdmin(t *testing.T) {
	r := New(admin1)

	_, err := r.PlanDeleteApprovedStoreOwner(admin1, admin1)

	assert.True(t, ir.IsInvariantViolation(err))
	assert.Equal(t, ir.Administrator, r.Role(admin1))
}

func TestDeleteUnassigned_NoOp(t *testing.T) {
	r := New(admin1)

	tr := apply(t, r.PlanDeleteApprovedStoreOwner, r, admin1, nobody)
	assert.True(t, tr.NoOp())
	tr = apply(t, r.PlanDeleteAdmin, r, admin1, nobody)
	assert.True(t, tr.NoOp())
	assert.Equal(t, ir.Unassigned, r.Role(nobody))
}

func TestMutations_RequireAdministrator(t *testing.T) {
	r := New(admin1)
	apply(t, r.PlanAddApprovedStoreOwner, r, admin1, owner1)
	before := r.Snapshot()

	plans := map[string]func(req, target ir.Identity) (Transition, error){
		OpAddAdmin:                 r.PlanAddAdmin,
		OpDeleteAdmin:              r.PlanDeleteAdmin,
		OpAddApprovedStoreOwner:    r.PlanAddApprovedStoreOwner,
		OpDeleteApprovedStoreOwner: r.PlanDeleteApprovedStoreOwner,
	}

	for op, plan := range plans {
		for _, requester := range []ir.Identity{owner1, nobody} {
			t.Run(op, func(t *testing.T) {
				_, err := plan(requester, admin1)
				require.Error(t, err)
				assert.True(t, ir.IsAuthorizationError(err))

				var e *ir.Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, op, e.Op)
				assert.Equal(t, requester, e.Requester)
			})
		}
	}

	assert.Equal(t, before, r.Snapshot(), "rejections must not change state")
}

func TestMutations_RejectZeroTarget(t *testing.T) {
	r := New(admin1)

	_, err := r.PlanAddAdmin(admin1, ir.ZeroIdentity)

	assert.True(t, ir.IsInvalidArgument(err))
}

func TestMembers_FirstAssignmentOrder(t *testing.T) {
	r := New(admin1)
	apply(t, r.PlanAddApprovedStoreOwner, r, admin1, owner1)
	apply(t, r.PlanAddAdmin, r, admin1, admin2)
	apply(t, r.PlanAddApprovedStoreOwner, r, admin1, nobody)

	assert.Equal(t, []ir.Identity{admin1, admin2}, r.Members(ir.Administrator))
	assert.Equal(t, []ir.Identity{owner1, nobody}, r.Members(ir.ApprovedStoreOwner))
	assert.Empty(t, r.Members(ir.Unassigned))
}

func TestSnapshot_IsCopy(t *testing.T) {
	r := New(admin1)
	snap := r.Snapshot()
	snap[admin2] = ir.Administrator

	assert.Equal(t, ir.Unassigned, r.Role(admin2))
}
