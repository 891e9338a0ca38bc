package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/market"
)

// MutationOptions holds flags shared by the commands that change roles or
// open stores.
type MutationOptions struct {
	*RootOptions
	From string
}

// RoleResult is the output of the role command.
type RoleResult struct {
	Address string `json:"address"`
	Role    string `json:"role"`
	Value   int    `json:"value"`
}

// NewRoleCommand creates the role command.
func NewRoleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role <address>",
		Short: "Show the role of an identity",
		Long: `Show the role held by an identity: Administrator (0),
ApprovedStoreOwner (1) or Unassigned (2).

Examples:
  marketplace role 0x00000000000000000000000000000000000000a1
  marketplace role 0x00000000000000000000000000000000000000b1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRole(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runRole(opts *RootOptions, addr string, cmd *cobra.Command) error {
	id, err := parseIdentityArg("address", addr)
	if err != nil {
		return err
	}
	sess, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	role := sess.market.Role(id)
	result := RoleResult{Address: id.Hex(), Role: role.String(), Value: int(role)}
	if opts.Format == "json" {
		return opts.formatter(cmd).Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d)\n", result.Address, result.Role, result.Value)
	return nil
}

type roleOp func(m *market.Marketplace, ctx context.Context, requester, target ir.Identity) (ir.Entry, error)

// NewAddAdminCommand creates the add-admin command.
func NewAddAdminCommand(rootOpts *RootOptions) *cobra.Command {
	return newRoleMutationCommand(rootOpts, "add-admin", "Grant Administrator to an identity", (*market.Marketplace).AddAdmin)
}

// NewDeleteAdminCommand creates the delete-admin command.
func NewDeleteAdminCommand(rootOpts *RootOptions) *cobra.Command {
	return newRoleMutationCommand(rootOpts, "delete-admin", "Unassign an identity (revokes Administrator)", (*market.Marketplace).DeleteAdmin)
}

// NewAddOwnerCommand creates the add-owner command.
func NewAddOwnerCommand(rootOpts *RootOptions) *cobra.Command {
	return newRoleMutationCommand(rootOpts, "add-owner", "Approve an identity as store owner", (*market.Marketplace).AddApprovedStoreOwner)
}

// NewDeleteOwnerCommand creates the delete-owner command.
func NewDeleteOwnerCommand(rootOpts *RootOptions) *cobra.Command {
	return newRoleMutationCommand(rootOpts, "delete-owner", "Unassign an identity (revokes store owner approval)", (*market.Marketplace).DeleteApprovedStoreOwner)
}

func newRoleMutationCommand(rootOpts *RootOptions, use, short string, op roleOp) *cobra.Command {
	opts := &MutationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   use + " <address>",
		Short: short,
		Long: short + `. Only an Administrator may do this.

Exit codes:
  0 - Operation accepted and journaled
  1 - Operation rejected (UNAUTHORIZED, INVARIANT_VIOLATION, INVALID_ARGUMENT)
  2 - Command error (bad address, database not found, etc.)

Example:
  marketplace ` + use + ` --from 0x00000000000000000000000000000000000000a1 0x00000000000000000000000000000000000000b1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleMutation(opts, op, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "requesting identity (required)")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func runRoleMutation(opts *MutationOptions, op roleOp, addr string, cmd *cobra.Command) error {
	from, err := parseIdentityArg("--from", opts.From)
	if err != nil {
		return err
	}
	target, err := parseIdentityArg("address", addr)
	if err != nil {
		return err
	}

	sess, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	f := opts.formatter(cmd)
	e, err := op(sess.market, commandContext(cmd), from, target)
	if err != nil {
		return f.Rejected(err)
	}
	return outputEntry(opts.RootOptions, cmd, e)
}

func outputEntry(opts *RootOptions, cmd *cobra.Command, e ir.Entry) error {
	if opts.Format == "json" {
		return opts.formatter(cmd).Success(viewEntry(e))
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatEntry(e))
	return nil
}
