package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Tx    string // optional - only this transaction
	Entry string // optional - only this entry point
}

// TraceEvent is one invocation in the trace timeline.
type TraceEvent struct {
	Seq        int64           `json:"seq"`
	ID         string          `json:"id"`
	Tx         string          `json:"tx"`
	Height     uint64          `json:"height"`
	Entry      string          `json:"entry"`
	Contract   string          `json:"contract"`
	Sender     string          `json:"sender"`
	Msg        json.RawMessage `json:"msg"`
	Ok         bool            `json:"ok"`
	Error      string          `json:"error,omitempty"`
	Attributes []ir.Attribute  `json:"attributes,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Tx       string       `json:"tx,omitempty"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Invocations  int `json:"invocations"`
	Failed       int `json:"failed"`
	Transactions int `json:"transactions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the invocation log",
		Long: `Show the invocation log: every entry-point call the host made, in
order, with its outcome. Failed transactions are logged too, including
spawns that were rolled back.

Examples:
  factory trace
  factory trace --tx 0192...
  factory trace --entry reply --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Tx, "tx", "", "only show this transaction")
	cmd.Flags().StringVar(&opts.Entry, "entry", "", "only show this entry point")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var entries []store.LogEntry
	if opts.Tx != "" {
		entries, err = st.ReadTx(ctx, opts.Tx)
	} else {
		entries, err = st.ReadLog(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read invocation log", err)
	}

	result := buildTrace(entries, opts.Entry)
	result.Tx = opts.Tx

	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return formatter.Success(result, "")
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

// buildTrace converts log entries to timeline events, keeping only
// entryFilter when it is set.
func buildTrace(entries []store.LogEntry, entryFilter string) TraceResult {
	result := TraceResult{Timeline: []TraceEvent{}}
	txs := map[string]bool{}

	for _, e := range entries {
		inv := e.Invocation
		if entryFilter != "" && inv.Entry != entryFilter {
			continue
		}

		ev := TraceEvent{
			Seq:      inv.Seq,
			ID:       inv.ID,
			Tx:       inv.TxToken,
			Height:   inv.Height,
			Entry:    inv.Entry,
			Contract: inv.Contract,
			Sender:   inv.Sender,
			Msg:      inv.Msg,
		}
		if e.Outcome != nil {
			ev.Ok = e.Outcome.Ok
			ev.Error = e.Outcome.Error
			ev.Attributes = e.Outcome.Attributes
		}
		if !ev.Ok {
			result.Stats.Failed++
		}
		txs[inv.TxToken] = true
		result.Timeline = append(result.Timeline, ev)
	}

	result.Stats.Invocations = len(result.Timeline)
	result.Stats.Transactions = len(txs)
	return result
}

// outputTraceText writes the trace as a human-readable timeline.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	if result.Tx != "" {
		fmt.Fprintf(w, "Trace for tx: %s\n", result.Tx)
	}

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no invocations)")
	}
	lastTx := ""
	for _, ev := range result.Timeline {
		if ev.Tx != lastTx {
			fmt.Fprintf(w, "  tx %s (height %d)\n", ev.Tx, ev.Height)
			lastTx = ev.Tx
		}
		status := "ok"
		if !ev.Ok {
			status = "FAILED: " + ev.Error
		}
		fmt.Fprintf(w, "    [%d] %s %s <- %s %s\n", ev.Seq, ev.Entry, ev.Contract, ev.Sender, status)
		if verbose {
			fmt.Fprintf(w, "         msg: %s\n", ev.Msg)
			for _, a := range ev.Attributes {
				fmt.Fprintf(w, "         %s = %s\n", a.Key, a.Value)
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Invocations:  %d\n", result.Stats.Invocations)
	fmt.Fprintf(w, "  Failed:       %d\n", result.Stats.Failed)
	fmt.Fprintf(w, "  Transactions: %d\n", result.Stats.Transactions)
}
