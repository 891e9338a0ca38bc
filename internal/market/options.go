package market

import (
	"context"
	"log/slog"

	"github.com/roach88/marketplace/internal/ir"
)

// Journal durably records entries before they take effect.
// Implemented by store.Store.
type Journal interface {
	AppendEntry(ctx context.Context, e ir.Entry) error
}

// Option configures a Marketplace.
type Option func(*Marketplace)

// WithJournal makes every committed entry durable in j before it is applied.
func WithJournal(j Journal) Option {
	return func(m *Marketplace) {
		m.journal = j
	}
}

// WithTxGenerator sets the tx id source.
//
// Default: UUIDv7Generator.
func WithTxGenerator(g TxGenerator) Option {
	return func(m *Marketplace) {
		m.txGen = g
	}
}

// WithLogger sets the structured logger.
//
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Marketplace) {
		m.logger = l
	}
}
