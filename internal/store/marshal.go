package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/marketplace/internal/ir"
)

// marshalPayload converts a payload to canonical JSON TEXT for storage.
// A nil payload is stored as "{}".
func marshalPayload(p ir.Payload) (string, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT into a payload. Numbers decode
// as json.Number so store ids survive without float64 rounding.
func unmarshalPayload(data string) (ir.Payload, error) {
	p := ir.Payload{}
	if data == "" || data == "{}" {
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

// marshalIdentity stores identities as lowercase hex.
func marshalIdentity(id ir.Identity) string {
	return ir.IdentityHex(id)
}

func unmarshalIdentity(column, s string) (ir.Identity, error) {
	if !common.IsHexAddress(s) {
		return ir.Identity{}, fmt.Errorf("column %s: invalid identity %q", column, s)
	}
	return common.HexToAddress(s), nil
}
