package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Kind    string // optional - filter to one entry kind
	Subject string // optional - filter to one user or store
	Since   int64  // only entries after this seq
}

// EntryView is the rendered form of one journal entry.
type EntryView struct {
	Seq     int64             `json:"seq"`
	TxID    string            `json:"tx_id"`
	Event   string            `json:"event"`
	Args    map[string]string `json:"args"`
	Payload ir.Payload        `json:"payload,omitempty"`
}

func viewEntry(e ir.Entry) EntryView {
	args := make(map[string]string, 2)
	for k, v := range e.Args() {
		args[k] = v.Hex()
	}
	var payload ir.Payload
	if len(e.Payload) > 0 {
		payload = e.Payload
	}
	return EntryView{Seq: e.Seq, TxID: e.TxID, Event: e.Kind.EventName(), Args: args, Payload: payload}
}

// formatEntry renders e on one line, args in key order.
func formatEntry(e ir.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s", e.Seq, e.Kind.EventName())

	args := e.Args()
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%s", k, args[k].Hex())
	}

	if len(e.Payload) > 0 {
		if data, err := ir.MarshalCanonical(map[string]any(e.Payload)); err == nil {
			fmt.Fprintf(&sb, " %s", data)
		}
	}
	fmt.Fprintf(&sb, " tx=%s", e.TxID)
	return sb.String()
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show journaled entries",
		Long: `Show the journal in seq order.

Each entry prints its event name, its args (_req plus _user, _store or
_market), its payload and its tx id.

Examples:
  marketplace log
  marketplace log --kind LogNewStore
  marketplace log --subject 0x00000000000000000000000000000000000000b1
  marketplace log --since 4 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one kind (AdminAdded or LogAdminAdded)")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "filter to one user or store address")
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only entries with a greater seq")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	var (
		kind    ir.Kind
		subject *ir.Identity
	)
	if opts.Kind != "" {
		k, err := ir.ParseKind(opts.Kind)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
		kind = k
	}
	if opts.Subject != "" {
		id, err := parseIdentityArg("--subject", opts.Subject)
		if err != nil {
			return err
		}
		subject = &id
	}
	if opts.Since < 0 {
		return NewExitError(ExitCommandError, "--since must not be negative")
	}

	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", cfg.Database))
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := commandContext(cmd)
	var entries []ir.Entry
	switch {
	case kind != "":
		entries, err = st.ReadEntriesByKind(ctx, kind)
	case subject != nil:
		entries, err = st.ReadEntriesBySubject(ctx, *subject)
	default:
		entries, err = st.ReadEntriesSince(ctx, opts.Since)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	filtered := entries[:0]
	for _, e := range entries {
		if e.Seq <= opts.Since {
			continue
		}
		if subject != nil && e.Subject != *subject {
			continue
		}
		filtered = append(filtered, e)
	}

	if opts.Format == "json" {
		views := make([]EntryView, len(filtered))
		for i, e := range filtered {
			views[i] = viewEntry(e)
		}
		return opts.formatter(cmd).Success(views)
	}

	w := cmd.OutOrStdout()
	if len(filtered) == 0 {
		fmt.Fprintln(w, "No entries.")
		return nil
	}
	for _, e := range filtered {
		fmt.Fprintln(w, formatEntry(e))
	}
	return nil
}
