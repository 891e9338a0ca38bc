// Package registry implements the store factory and the ordered store
// registry.
//
// Provisioning a store allocates a StoreLogic instance in an index-addressed
// arena and mints its address from the marketplace address and the factory
// nonce, the way a contract factory derives child contract addresses.
// Registration order is creation order; stores are never removed.
//
// Like roles.Registry, creation is two-phase (Plan then Register) and the
// type is not safe for concurrent use on its own.
package registry
