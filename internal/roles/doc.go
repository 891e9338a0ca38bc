// Package roles implements the marketplace's access-control table.
//
// Every identity holds exactly one ir.Role, Unassigned by default. Only
// Administrators may change role assignments, and the table never loses its
// last Administrator.
//
// Mutations are two-phase: a Plan* method authorizes the request and computes
// a Transition without touching state, and Apply commits it. The caller can
// persist the transition between the two steps and abandon it on failure,
// which keeps every operation all-or-nothing.
//
// Registry is not safe for concurrent use; the marketplace serializes access
// behind its writer lock.
package roles
