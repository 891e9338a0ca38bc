// Package ir provides the shared vocabulary of the marketplace: identities,
// roles, audit entry kinds and the canonical encoding used for payloads,
// journals and golden traces.
//
// This package contains types and pure functions only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Identities are 20-byte account addresses; the zero address is never valid
//   - Payload values are strings, integers, booleans, arrays or objects (no floats, no null)
//   - Ordering uses the logical seq counter only, never wall-clock timestamps
package ir
