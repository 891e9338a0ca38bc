package ir

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is an opaque account handle. Two identities are the same account
// iff their addresses are equal.
type Identity = common.Address

// ZeroIdentity is the unset identity. It never holds a role.
var ZeroIdentity Identity

// ParseIdentity parses a 0x-prefixed, 40 hex digit account address.
// Mixed case is accepted; the checksum is not enforced.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return ZeroIdentity, fmt.Errorf("identity %q: missing 0x prefix", s)
	}
	if !common.IsHexAddress(s) {
		return ZeroIdentity, fmt.Errorf("identity %q: not a 20-byte hex address", s)
	}
	id := common.HexToAddress(s)
	if id == ZeroIdentity {
		return ZeroIdentity, fmt.Errorf("identity %q: zero address is reserved", s)
	}
	return id, nil
}

// MustParseIdentity is like ParseIdentity but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Role is the access-control level of an identity.
// Numeric values are part of the external contract: getUserRole of an
// administrator reports 0.
type Role int

const (
	Administrator Role = iota
	ApprovedStoreOwner
	Unassigned
)

var roleNames = map[Role]string{
	Administrator:      "Administrator",
	ApprovedStoreOwner: "ApprovedStoreOwner",
	Unassigned:         "Unassigned",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Valid reports whether r is one of the three defined roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole accepts a role name (case-insensitive) or its numeric value.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for r, name := range roleNames {
		if strings.EqualFold(s, name) || s == fmt.Sprintf("%d", int(r)) {
			return r, nil
		}
	}
	return Unassigned, fmt.Errorf("unknown role %q", s)
}

// Kind identifies the action recorded by an audit entry.
type Kind string

const (
	KindNewMarketplace        Kind = "NewMarketplace"
	KindAdminAdded            Kind = "AdminAdded"
	KindAdminDeleted          Kind = "AdminDeleted"
	KindApprStoreOwnerAdded   Kind = "ApprStoreOwnerAdded"
	KindApprStoreOwnerDeleted Kind = "ApprStoreOwnerDeleted"
	KindNewStore              Kind = "NewStore"

	// KindStoreDeleted is reserved. No operation emits it.
	KindStoreDeleted Kind = "StoreDeleted"
)

// Subject field names used in event args.
const (
	FieldRequester = "_req"
	FieldUser      = "_user"
	FieldStore     = "_store"
	FieldMarket    = "_market"
)

// AllKinds lists every entry kind in vocabulary order.
var AllKinds = []Kind{
	KindNewMarketplace,
	KindAdminAdded,
	KindAdminDeleted,
	KindApprStoreOwnerAdded,
	KindApprStoreOwnerDeleted,
	KindNewStore,
	KindStoreDeleted,
}

// Valid reports whether k belongs to the vocabulary.
func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// EventName returns the name observers subscribe to.
// ApprStoreOwnerDeleted is spelled LogApprStoreOWnerDeleted.
func (k Kind) EventName() string {
	if k == KindApprStoreOwnerDeleted {
		return "LogApprStoreOWnerDeleted"
	}
	return "Log" + string(k)
}

// SubjectField returns the args key carrying the entry's subject.
func (k Kind) SubjectField() string {
	switch k {
	case KindNewStore, KindStoreDeleted:
		return FieldStore
	case KindNewMarketplace:
		return FieldMarket
	default:
		return FieldUser
	}
}

// ParseKind accepts either the kind ("AdminAdded") or the event name
// ("LogAdminAdded").
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range AllKinds {
		if s == string(k) || s == k.EventName() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entry kind %q", s)
}

// Entry is one immutable audit record.
type Entry struct {
	Seq       int64    `json:"seq"`
	TxID      string   `json:"tx_id"`
	Kind      Kind     `json:"kind"`
	Requester Identity `json:"requester"`
	Subject   Identity `json:"subject"`
	Payload   Payload  `json:"payload,omitempty"`
}

// Args returns the event arguments keyed the way observers read them:
// the requester under _req and the subject under _user, _store or _market.
func (e Entry) Args() map[string]Identity {
	return map[string]Identity{
		FieldRequester:       e.Requester,
		e.Kind.SubjectField(): e.Subject,
	}
}

// Payload holds the kind-specific detail of an entry, e.g. the store name and
// id for NewStore. Values must be canonically encodable.
type Payload map[string]any

// String returns the payload value at key, or "" when absent or not a string.
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int returns the payload value at key as int64. JSON-decoded numbers and
// native integer types are both accepted.
func (p Payload) Int(key string) (int64, bool) {
	switch v := p[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
