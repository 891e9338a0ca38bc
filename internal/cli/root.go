package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/marketplace/internal/market"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // optional CUE config file
	Database string // overrides the config's database path

	// TxGenerator overrides the tx id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TxGenerator market.TxGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the marketplace CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "marketplace",
		Short: "Marketplace - role-gated store registry",
		Long: `Operate a marketplace whose administrators approve store owners,
and whose approved store owners open stores.

Every accepted operation is journaled to SQLite and replayed on the next
invocation, so the commands below act on the same marketplace until the
database is removed.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to CUE config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite journal (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewRoleCommand(opts))
	cmd.AddCommand(NewAddAdminCommand(opts))
	cmd.AddCommand(NewDeleteAdminCommand(opts))
	cmd.AddCommand(NewAddOwnerCommand(opts))
	cmd.AddCommand(NewDeleteOwnerCommand(opts))
	cmd.AddCommand(NewCreateStoreCommand(opts))
	cmd.AddCommand(NewStoresCommand(opts))
	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
