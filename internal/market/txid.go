package market

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TxGenerator mints the correlation id stored on every audit entry.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type TxGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tx ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predictable tx ids for tests and golden traces:
// "<prefix>-1", "<prefix>-2", ...
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedGenerator creates a generator whose ids start at "<prefix>-1".
func NewFixedGenerator(prefix string) *FixedGenerator {
	return &FixedGenerator{prefix: prefix}
}

// Generate returns the next id in sequence.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
