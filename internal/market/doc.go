// Package market is the marketplace service: the façade that binds a caller
// identity to every operation, authorizes it against the role table, applies
// it to the role table or the store factory, and records it in the audit log.
//
// # Serialization
//
// All mutating operations execute under one writer lock that spans the role
// table, the store registry and the audit log. Inside the lock each call runs
// authorize → plan → journal → apply → append, so a concurrent reader either
// sees none of a call's effects or all of them, and a rejected call leaves no
// trace. Queries take the read lock and may run concurrently.
//
// # Durability
//
// With WithJournal, each planned entry is written to the journal before the
// in-memory state changes. A journal failure aborts the call with nothing
// applied. Replay rebuilds a Marketplace from a journal by re-executing every
// entry under its recorded requester and tx id.
package market
