package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/app"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args string
	List bool
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <op>",
		Short: "Dispatch any operation by name",
		Long: `Dispatch any operation by name with JSON arguments.

This is the same entry point the scenario harness uses; the typed commands
(auth, stores, admin, reviews) are shortcuts over it. Use --list to see
every operation name.

Example:
  storefront invoke auth/login --args '{"email":"ada@example.com","password":"secret1"}'
  storefront invoke stores/fetchStores --args '{"status":"APPROVED","page":2}'
  storefront invoke --list`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.List {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.List {
				return listOps(opts, cmd)
			}
			return invokeOp(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "operation arguments as JSON")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list operation names")

	return cmd
}

func invokeOp(opts *InvokeOptions, op string, cmd *cobra.Command) error {
	// Validate args JSON
	raw := json.RawMessage(strings.TrimSpace(opts.Args))
	if !json.Valid(raw) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --args JSON: %s", opts.Args))
	}
	if !knownOp(op) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown operation %q (see --list)", op))
	}
	return dispatch(cmd, opts.RootOptions, op, raw)
}

func knownOp(op string) bool {
	for _, name := range app.Ops() {
		if name == op {
			return true
		}
	}
	return false
}

func listOps(opts *InvokeOptions, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return f.Success(app.Ops())
	}
	return f.Success(strings.Join(app.Ops(), "\n"))
}
