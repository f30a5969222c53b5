package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/journal"
)

// DefaultTraceLimit is how many recent operations trace shows without
// --flow.
const DefaultTraceLimit = 20

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	FlowToken string
	Op        string // optional - filter to one operation name
	Limit     int
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	FlowToken string          `json:"flow_token,omitempty"`
	Timeline  []journal.Entry `json:"timeline"`
	Stats     TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Operations int  `json:"operations"`
	Succeeded  int  `json:"succeeded"`
	Failed     int  `json:"failed"`
	Superseded int  `json:"superseded"`
	InFlight   int  `json:"in_flight"`
	IsComplete bool `json:"is_complete"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled operations",
		Long: `Show operations from the local journal.

With --flow, shows every operation dispatched under that flow token in
dispatch order: a login and the identity fetch it chains share one flow.
Without it, shows the most recent operations, newest first.

Examples:
  storefront trace
  storefront trace --limit 5
  storefront trace --flow 0192f0c4-... --format json
  storefront trace --op auth/login`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "flow token to trace")
	cmd.Flags().StringVar(&opts.Op, "op", "", "filter to one operation name")
	cmd.Flags().IntVar(&opts.Limit, "limit", DefaultTraceLimit, "number of recent operations without --flow")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --limit %d: must be positive", opts.Limit))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	// Open database
	st, err := journal.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var entries []journal.Entry
	if opts.FlowToken != "" {
		entries, err = st.ReadFlow(ctx, opts.FlowToken)
	} else {
		entries, err = st.Recent(ctx, opts.Limit)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{
		FlowToken: opts.FlowToken,
		Timeline:  filterEntries(entries, opts.Op),
	}
	result.Stats = traceStats(result.Timeline)

	// Output results
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}

	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// filterEntries keeps the entries of one operation. Never returns nil, so
// an empty timeline encodes as [].
func filterEntries(entries []journal.Entry, op string) []journal.Entry {
	out := make([]journal.Entry, 0, len(entries))
	for _, e := range entries {
		if op == "" || e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

func traceStats(entries []journal.Entry) TraceStats {
	stats := TraceStats{Operations: len(entries)}
	for _, e := range entries {
		switch engine.Outcome(e.Outcome) {
		case engine.OutcomeOK:
			stats.Succeeded++
		case engine.OutcomeError:
			stats.Failed++
		case engine.OutcomeSuperseded:
			stats.Superseded++
		default:
			stats.InFlight++
		}
	}
	stats.IsComplete = stats.InFlight == 0
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	if result.FlowToken != "" {
		fmt.Fprintf(w, "Trace for Flow: %s\n", result.FlowToken)
	} else {
		fmt.Fprintln(w, "Recent operations")
	}
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats.IsComplete))
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no operations)")
	} else {
		for _, e := range result.Timeline {
			formatEntry(w, e, verbose, result.FlowToken == "")
		}
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Operations: %d\n", result.Stats.Operations)
	fmt.Fprintf(w, "  Succeeded:  %d\n", result.Stats.Succeeded)
	fmt.Fprintf(w, "  Failed:     %d\n", result.Stats.Failed)
	fmt.Fprintf(w, "  Superseded: %d\n", result.Stats.Superseded)
	fmt.Fprintf(w, "  In flight:  %d\n", result.Stats.InFlight)

	return nil
}

// formatEntry formats a single journal entry for text output.
func formatEntry(w io.Writer, e journal.Entry, verbose, showFlow bool) {
	outcome := e.Outcome
	if outcome == "" {
		outcome = "pending"
	}
	fmt.Fprintf(w, "  [%d] %s -> %s", e.Seq, e.Op, outcome)
	if e.Message != "" {
		fmt.Fprintf(w, " (%s)", e.Message)
	}
	fmt.Fprintln(w)

	if showFlow {
		fmt.Fprintf(w, "       Flow: %s\n", e.Flow)
	}
	if verbose && len(e.Args) > 0 {
		fmt.Fprintf(w, "       Args: %s\n", formatArgs(e.Args))
	}
	if verbose {
		fmt.Fprintf(w, "       ID: %s\n", truncateID(e.ID))
		fmt.Fprintf(w, "       At: %s\n", e.At.Format("2006-01-02T15:04:05Z07:00"))
	}
}

// formatArgs formats a map of args for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// completeStatus returns a human-readable completion status.
func completeStatus(isComplete bool) string {
	if isComplete {
		return "Complete"
	}
	return "Incomplete (operations in flight)"
}
