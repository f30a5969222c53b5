package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/stores"
)

// NewAdminCommand groups the moderation operations.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Moderate store submissions",
	}

	cmd.AddCommand(newOpCommand(rootOpts, "pending", "List stores awaiting moderation", stores.OpFetchPendingStores))
	cmd.AddCommand(newIDCommand(rootOpts, "approve <id>", "Approve a pending store", stores.OpApproveStore))
	cmd.AddCommand(newRejectCommand(rootOpts))
	cmd.AddCommand(newSetStatusCommand(rootOpts))

	return cmd
}

func newRejectCommand(rootOpts *RootOptions) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:           "reject <id>",
		Short:         "Reject a pending store",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return dispatch(cmd, rootOpts, stores.OpRejectStore, map[string]any{"id": id, "reason": reason})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason shown to the owner")

	return cmd
}

func newSetStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set-status <id> <PENDING|APPROVED|REJECTED>",
		Short:         "Set a store's moderation status",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := domain.ParseStoreStatus(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid status", err)
			}
			return dispatch(cmd, rootOpts, stores.OpUpdateStoreStatus, map[string]any{"id": id, "status": status})
		},
	}
}
