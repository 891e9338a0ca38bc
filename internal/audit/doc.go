// Package audit provides the marketplace's append-only audit log and its
// one-shot delivery of entries to observers.
//
// # Ordering
//
// Entries are stamped with a strictly increasing seq from the log's logical
// clock, starting at 1. The log never rewrites or removes an entry.
//
// # Watches
//
// A Watch is registered for one entry kind (optionally narrowed to one
// subject) before the triggering call. The next matching Append fulfils it
// exactly once; every watch registered before that append receives the same
// entry. Delivery happens inside Append, after the entry is in the log, so a
// woken observer always finds the entry in Entries.
package audit
