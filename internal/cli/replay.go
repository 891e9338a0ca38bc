package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/market"
	"github.com/roach88/marketplace/internal/store"
)

// ReplayResult holds the outcome of rebuilding the marketplace from its
// journal.
type ReplayResult struct {
	Entries       int    `json:"entries"`
	Admins        int    `json:"admins"`
	Owners        int    `json:"owners"`
	Stores        int    `json:"stores"`
	Deterministic bool   `json:"deterministic"`
	DivergedAt    int64  `json:"diverged_at,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the marketplace from its journal and verify it",
		Long: `Rebuild the marketplace from the journal and verify that the rebuilt
audit log matches the journal entry for entry: same seqs, tx ids,
requesters, subjects and payloads. Store addresses are re-derived and must
match what was journaled.

Exit codes:
  0 - Journal replays to an identical log
  1 - Replay rejected an entry or the rebuilt log diverged
  2 - Command error (database not found, etc.)

Examples:
  marketplace replay --db ./market.db
  marketplace replay --db ./market.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
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
	entries, err := st.ReadEntries(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := ReplayResult{Entries: len(entries), Deterministic: true}

	m, err := market.Replay(ctx, entries, market.WithLogger(cfg.Logger(cmd.ErrOrStderr())))
	if err != nil {
		var rerr *market.ReplayError
		if !errors.As(err, &rerr) {
			return WrapExitError(ExitCommandError, "replay failed", err)
		}
		result.Deterministic = false
		result.DivergedAt = rerr.Seq
		result.Reason = rerr.Error()
		return outputReplay(opts, cmd, result)
	}

	result.Admins = len(m.Members(ir.Administrator))
	result.Owners = len(m.Members(ir.ApprovedStoreOwner))
	result.Stores = m.StoresNum()
	if seq, reason := compareEntries(entries, m.Entries()); seq != 0 {
		result.Deterministic = false
		result.DivergedAt = seq
		result.Reason = reason
	}
	return outputReplay(opts, cmd, result)
}

// compareEntries returns the first seq at which got differs from want, and
// why. A zero seq means the logs match.
func compareEntries(want, got []ir.Entry) (int64, string) {
	for i := range want {
		w := want[i]
		if i >= len(got) {
			return w.Seq, "missing from rebuilt log"
		}
		g := got[i]
		switch {
		case w.Seq != g.Seq:
			return w.Seq, fmt.Sprintf("seq %d rebuilt as %d", w.Seq, g.Seq)
		case w.TxID != g.TxID:
			return w.Seq, fmt.Sprintf("tx id %s rebuilt as %s", w.TxID, g.TxID)
		case w.Kind != g.Kind:
			return w.Seq, fmt.Sprintf("kind %s rebuilt as %s", w.Kind, g.Kind)
		case w.Requester != g.Requester:
			return w.Seq, "requester differs"
		case w.Subject != g.Subject:
			return w.Seq, "subject differs"
		}
		if !samePayload(w.Payload, g.Payload) {
			return w.Seq, "payload differs"
		}
	}
	if len(got) > len(want) {
		return got[len(want)].Seq, "extra entry in rebuilt log"
	}
	return 0, ""
}

func samePayload(a, b ir.Payload) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ca, errA := ir.MarshalCanonical(a)
	cb, errB := ir.MarshalCanonical(b)
	return errA == nil && errB == nil && bytes.Equal(ca, cb)
}

func outputReplay(opts *RootOptions, cmd *cobra.Command, result ReplayResult) error {
	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Deterministic {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_REPLAY_DIVERGED",
				Message: result.Reason,
			}
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		if !result.Deterministic {
			return NewExitError(ExitFailure, "journal replay diverged")
		}
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Replay Summary: %d entries\n", result.Entries)
	if !result.Deterministic {
		fmt.Fprintf(w, "✗ Diverged at entry %d: %s\n", result.DivergedAt, result.Reason)
		return NewExitError(ExitFailure, "journal replay diverged")
	}
	fmt.Fprintf(w, "  Administrators: %d\n", result.Admins)
	fmt.Fprintf(w, "  Approved store owners: %d\n", result.Owners)
	fmt.Fprintf(w, "  Stores: %d\n", result.Stores)
	fmt.Fprintln(w, "✓ Journal verified deterministic")
	return nil
}
