package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/marketplace/internal/config"
	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/market"
	"github.com/roach88/marketplace/internal/store"
)

// settings loads the config file, or the defaults when none is given, and
// applies the flag overrides.
func (o *RootOptions) settings() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.Config != "" {
		cfg, err = config.Load(o.Config)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func (o *RootOptions) txGenerator() market.TxGenerator {
	if o.TxGenerator != nil {
		return o.TxGenerator
	}
	return market.UUIDv7Generator{}
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// session is a marketplace rebuilt from its journal, with the journal
// attached so further operations are persisted.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store
	market *market.Marketplace
}

// openSession replays the configured journal. The journal must exist and
// hold a deployed marketplace.
func (o *RootOptions) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := o.settings()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.Database); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s (run marketplace init)", cfg.Database))
	}

	logger := cfg.Logger(cmd.ErrOrStderr())
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	ctx := commandContext(cmd)
	entries, err := st.ReadEntries(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if len(entries) == 0 {
		st.Close()
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("no marketplace in %s (run marketplace init)", cfg.Database))
	}

	m, err := market.Replay(ctx, entries,
		market.WithJournal(st),
		market.WithLogger(logger),
		market.WithTxGenerator(o.txGenerator()),
	)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitFailure, "journal replay failed", err)
	}

	return &session{cfg: cfg, logger: logger, store: st, market: m}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// commandContext uses the command's context if available (for testing),
// otherwise a background one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseIdentityArg(name, s string) (ir.Identity, error) {
	id, err := ir.ParseIdentity(s)
	if err != nil {
		return ir.Identity{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s", name), err)
	}
	return id, nil
}
