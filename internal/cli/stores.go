package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/marketplace/internal/registry"
)

// StoreView describes one store instance.
type StoreView struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Owner   string `json:"owner"`
	Address string `json:"address"`
	Market  string `json:"market,omitempty"`
	Dummy   uint64 `json:"dummy,omitempty"`
}

func viewStore(st registry.Store) StoreView {
	return StoreView{
		ID:      st.ID,
		Name:    st.Name,
		Owner:   st.Owner.Hex(),
		Address: st.Address.Hex(),
	}
}

// NewCreateStoreCommand creates the create-store command.
func NewCreateStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create-store <name>",
		Short: "Open a store owned by the requester",
		Long: `Open a new store. Only an ApprovedStoreOwner may do this, and the
requester becomes the store's owner. Names are NFC-normalized and trimmed,
and must be 1 to 32 bytes long.

Exit codes:
  0 - Store created and journaled
  1 - Operation rejected (UNAUTHORIZED, INVALID_ARGUMENT)
  2 - Command error (bad address, database not found, etc.)

Example:
  marketplace create-store --from 0x00000000000000000000000000000000000000b1 Cars`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateStore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "requesting identity (required)")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func runCreateStore(opts *MutationOptions, name string, cmd *cobra.Command) error {
	from, err := parseIdentityArg("--from", opts.From)
	if err != nil {
		return err
	}
	sess, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	f := opts.formatter(cmd)
	st, err := sess.market.CreateStore(commandContext(cmd), from, name)
	if err != nil {
		return f.Rejected(err)
	}

	view := viewStore(st)
	if opts.Format == "json" {
		return f.Success(view)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Store %d %q created at %s\n", view.ID, view.Name, view.Address)
	return nil
}

// NewStoresCommand creates the stores command.
func NewStoresCommand(rootOpts *RootOptions) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "stores",
		Short: "List stores in creation order",
		Long: `List every store of the marketplace in creation order.

Examples:
  marketplace stores
  marketplace stores --owner 0x00000000000000000000000000000000000000b1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStores(rootOpts, owner, cmd)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "only stores owned by this identity")

	return cmd
}

func runStores(opts *RootOptions, owner string, cmd *cobra.Command) error {
	sess, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	var stores []registry.Store
	if owner != "" {
		id, err := parseIdentityArg("--owner", owner)
		if err != nil {
			return err
		}
		stores = sess.market.StoresOf(id)
	} else {
		addrs, meta := sess.market.Stores()
		stores = make([]registry.Store, len(addrs))
		for i := range addrs {
			stores[i] = registry.Store{ID: meta[i].ID, Name: meta[i].Name, Owner: meta[i].Owner, Address: addrs[i]}
		}
	}

	views := make([]StoreView, len(stores))
	for i, st := range stores {
		views[i] = viewStore(st)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(views)
	}

	w := cmd.OutOrStdout()
	if len(views) == 0 {
		fmt.Fprintln(w, "No stores.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOWNER\tADDRESS")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.ID, v.Name, v.Owner, v.Address)
	}
	return tw.Flush()
}

// NewStoreCommand creates the store command.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store <address>",
		Short: "Show one store instance",
		Long: `Show the store instance at an address, including its back-reference
to the marketplace and its sentinel value (42).

Exit codes:
  0 - Store found
  1 - No store at the address (NOT_FOUND)
  2 - Command error

Example:
  marketplace store 0x901368214592723e67741356877965364d10bbf0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runStore(opts *RootOptions, addr string, cmd *cobra.Command) error {
	id, err := parseIdentityArg("address", addr)
	if err != nil {
		return err
	}
	sess, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	f := opts.formatter(cmd)
	inst, err := sess.market.StoreAt(id)
	if err != nil {
		return f.Rejected(err)
	}

	view := viewStore(inst.Record())
	view.Market = inst.Market().Hex()
	view.Dummy = inst.Dummy()
	if opts.Format == "json" {
		return f.Success(view)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Store %d %q\n", view.ID, view.Name)
	fmt.Fprintf(w, "  address: %s\n", view.Address)
	fmt.Fprintf(w, "  owner:   %s\n", view.Owner)
	fmt.Fprintf(w, "  market:  %s\n", view.Market)
	fmt.Fprintf(w, "  dummy:   %d\n", view.Dummy)
	return nil
}
