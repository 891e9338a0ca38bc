package roles

import (
	"github.com/roach88/marketplace/internal/ir"
)

// Operation names, used in errors and audit logs.
const (
	OpAddAdmin                 = "addAdmin"
	OpDeleteAdmin              = "deleteAdmin"
	OpAddApprovedStoreOwner    = "addApprovedStoreOwner"
	OpDeleteApprovedStoreOwner = "deleteApprovedStoreOwner"
)

// Transition is a planned role change for one identity.
// From == To is a valid, idempotent transition.
type Transition struct {
	Op     string
	Target ir.Identity
	From   ir.Role
	To     ir.Role
}

// NoOp reports whether applying t leaves the table unchanged.
func (t Transition) NoOp() bool {
	return t.From == t.To
}

// Registry maps identities to roles.
type Registry struct {
	roles  map[ir.Identity]ir.Role
	order  []ir.Identity // first-assignment order, for deterministic enumeration
	admins int
}

// New creates a registry whose only Administrator is founder.
func New(founder ir.Identity) *Registry {
	r := &Registry{roles: make(map[ir.Identity]ir.Role)}
	r.set(founder, ir.Administrator)
	return r
}

// Role returns the role of id. Unknown identities are Unassigned.
func (r *Registry) Role(id ir.Identity) ir.Role {
	if role, ok := r.roles[id]; ok {
		return role
	}
	return ir.Unassigned
}

// AdminCount returns the number of Administrators.
func (r *Registry) AdminCount() int {
	return r.admins
}

// Authorize returns an UNAUTHORIZED error unless requester holds need.
func (r *Registry) Authorize(op string, requester ir.Identity, need ir.Role) error {
	if has := r.Role(requester); has != need {
		return ir.NewUnauthorizedError(op, requester, need, has)
	}
	return nil
}

// PlanAddAdmin authorizes requester to make target an Administrator.
func (r *Registry) PlanAddAdmin(requester, target ir.Identity) (Transition, error) {
	return r.plan(OpAddAdmin, requester, target, ir.Administrator)
}

// PlanDeleteAdmin authorizes requester to move target to Unassigned.
func (r *Registry) PlanDeleteAdmin(requester, target ir.Identity) (Transition, error) {
	return r.plan(OpDeleteAdmin, requester, target, ir.Unassigned)
}

// PlanAddApprovedStoreOwner authorizes requester to make target an
// ApprovedStoreOwner, overwriting any prior role.
func (r *Registry) PlanAddApprovedStoreOwner(requester, target ir.Identity) (Transition, error) {
	return r.plan(OpAddApprovedStoreOwner, requester, target, ir.ApprovedStoreOwner)
}

// PlanDeleteApprovedStoreOwner authorizes requester to move target to
// Unassigned. Whatever role the target held is cleared.
func (r *Registry) PlanDeleteApprovedStoreOwner(requester, target ir.Identity) (Transition, error) {
	return r.plan(OpDeleteApprovedStoreOwner, requester, target, ir.Unassigned)
}

// plan runs the checks shared by every role mutation.
func (r *Registry) plan(op string, requester, target ir.Identity, to ir.Role) (Transition, error) {
	if err := r.Authorize(op, requester, ir.Administrator); err != nil {
		return Transition{}, err
	}
	if target == ir.ZeroIdentity {
		return Transition{}, ir.NewInvalidArgumentError(op, requester, "target is the zero identity")
	}

	from := r.Role(target)
	t := Transition{Op: op, Target: target, From: from, To: to}
	if from == ir.Administrator && to != ir.Administrator && r.admins <= 1 {
		return Transition{}, ir.NewLastAdminError(op, requester, target)
	}
	return t, nil
}

// Apply commits a planned transition.
func (r *Registry) Apply(t Transition) {
	r.set(t.Target, t.To)
}

func (r *Registry) set(id ir.Identity, role ir.Role) {
	prev, known := r.roles[id]
	if !known {
		prev = ir.Unassigned
		r.order = append(r.order, id)
	}
	if prev == ir.Administrator {
		r.admins--
	}
	if role == ir.Administrator {
		r.admins++
	}
	r.roles[id] = role
}

// Members returns identities currently holding role, in first-assignment
// order. Unassigned returns only identities that were once assigned.
func (r *Registry) Members(role ir.Role) []ir.Identity {
	members := []ir.Identity{}
	for _, id := range r.order {
		if r.roles[id] == role {
			members = append(members, id)
		}
	}
	return members
}

// Snapshot returns a copy of every explicit assignment.
func (r *Registry) Snapshot() map[ir.Identity]ir.Role {
	out := make(map[ir.Identity]ir.Role, len(r.roles))
	for id, role := range r.roles {
		out[id] = role
	}
	return out
}
