package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Overrides for the environment configuration. Empty or zero means
	// "use the environment".
	APIURL  string
	DBPath  string
	Timeout time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the storefront CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront marketplace client",
		Long: `A command-line client for the storefront marketplace.

Every operation is journaled in a local SQLite database together with the
session cookie, so a login survives between invocations.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Timeout < 0 {
				return fmt.Errorf("invalid timeout %s: must not be negative", opts.Timeout)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", "", "API base URL (default $STOREFRONT_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "journal database path (default $STOREFRONT_DB)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 0, "request timeout (default $STOREFRONT_TIMEOUT_MS)")

	// Add subcommands
	cmd.AddCommand(NewAuthCommand(opts))
	cmd.AddCommand(NewStoresCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewReviewsCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

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
