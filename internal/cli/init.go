package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/market"
	"github.com/roach88/marketplace/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Deployer string
}

// MarketSummary describes a deployed marketplace.
type MarketSummary struct {
	Address  string `json:"address"`
	Deployer string `json:"deployer"`
	Database string `json:"database"`
	Admins   int    `json:"admins"`
	Stores   int    `json:"stores"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Deploy a marketplace into an empty journal",
		Long: `Deploy a new marketplace. The deployer becomes its sole Administrator
and the NewMarketplace entry is written to the journal.

The deployer comes from --deployer, or from the config file's deployer
field when the flag is absent.

Examples:
  marketplace init --db ./market.db --deployer 0x00000000000000000000000000000000000000a1
  marketplace init --config ./market.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Deployer, "deployer", "", "deploying identity (0x-prefixed hex)")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}

	var deployer ir.Identity
	if opts.Deployer != "" {
		deployer, err = parseIdentityArg("deployer", opts.Deployer)
	} else {
		deployer, err = cfg.DeployerIdentity()
		if err != nil {
			err = WrapExitError(ExitCommandError, "deployer required (--deployer or config)", err)
		}
	}
	if err != nil {
		return err
	}

	logger := cfg.Logger(cmd.ErrOrStderr())
	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := commandContext(cmd)
	last, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if last > 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s already holds a marketplace", cfg.Database))
	}

	f := opts.formatter(cmd)
	m, err := market.New(ctx, deployer,
		market.WithJournal(st),
		market.WithLogger(logger),
		market.WithTxGenerator(opts.txGenerator()),
	)
	if err != nil {
		return f.Rejected(err)
	}

	summary := summarize(m, cfg.Database)
	if opts.Format == "json" {
		return f.Success(summary)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Marketplace deployed at %s\n", summary.Address)
	fmt.Fprintf(w, "Administrator: %s\n", summary.Deployer)
	fmt.Fprintf(w, "Journal: %s\n", summary.Database)
	return nil
}

func summarize(m *market.Marketplace, database string) MarketSummary {
	return MarketSummary{
		Address:  m.Address().Hex(),
		Deployer: m.Deployer().Hex(),
		Database: database,
		Admins:   m.AdminCount(),
		Stores:   m.StoresNum(),
	}
}
