package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/session"
)

// NewAuthCommand groups the session operations.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign up and manage the session",
	}

	cmd.AddCommand(newLoginCommand(rootOpts))
	cmd.AddCommand(newRegisterCommand(rootOpts))
	cmd.AddCommand(newVerifyCommand(rootOpts))
	cmd.AddCommand(newOpCommand(rootOpts, "me", "Show the signed-in user", session.OpGetCurrentUser))
	cmd.AddCommand(newOpCommand(rootOpts, "logout", "End the session", session.OpLogout))
	cmd.AddCommand(newChangePasswordCommand(rootOpts))
	cmd.AddCommand(newForgotPasswordCommand(rootOpts))
	cmd.AddCommand(newResetPasswordCommand(rootOpts))

	return cmd
}

// newOpCommand builds a command for an operation that takes no arguments.
func newOpCommand(rootOpts *RootOptions, use, short, op string) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, rootOpts, op, nil)
		},
	}
}

func newLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and load the current user",
		Example: `  storefront auth login --email ada@example.com --password secret1
  storefront auth login --email ada@example.com --password secret1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, rootOpts, session.OpLogin, map[string]any{
				"email":    email,
				"password": password,
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")

	return cmd
}

func newRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var name, email, address, password, confirm, role, profilePic string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (sign in after verifying the email)",
		Example: `  storefront auth register --name Ada --email ada@example.com \
    --address "1 Loop Rd" --password secret1 --role storeOwner`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"name":     name,
				"email":    email,
				"address":  address,
				"password": password,
			}
			if cmd.Flags().Changed("confirm-password") {
				payload["confirmPassword"] = confirm
			}
			if role != "" {
				payload["role"] = role
			}
			if profilePic != "" {
				payload["profilePic"] = profilePic
			}
			return dispatch(cmd, rootOpts, session.OpRegister, payload)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&address, "address", "", "postal address")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 6 characters")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "repeat the password (defaults to --password)")
	cmd.Flags().StringVar(&role, "role", "", "user, storeOwner or admin")
	cmd.Flags().StringVar(&profilePic, "profile-pic", "", "profile picture URL")

	return cmd
}

func newVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	var email, token string

	cmd := &cobra.Command{
		Use:           "verify",
		Short:         "Confirm the emailed verification token and sign in",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, rootOpts, session.OpVerifyEmail, map[string]any{
				"email": email,
				"token": token,
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&token, "token", "", "verification token from the email")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func newChangePasswordCommand(rootOpts *RootOptions) *cobra.Command {
	var current, next string

	cmd := &cobra.Command{
		Use:           "change-password",
		Short:         "Change the signed-in user's password",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, rootOpts, session.OpChangePassword, map[string]any{
				"currentPassword": current,
				"newPassword":     next,
			})
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&next, "new", "", "new password, at least 6 characters")

	return cmd
}

func newForgotPasswordCommand(rootOpts *RootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:           "forgot-password",
		Short:         "Email a password reset token",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, rootOpts, session.OpRequestPasswordReset, map[string]any{"email": email})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")

	return cmd
}

func newResetPasswordCommand(rootOpts *RootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:           "reset-password <token>",
		Short:         "Set a new password with an emailed reset token",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, rootOpts, session.OpResetPassword, map[string]any{
				"token":       args[0],
				"newPassword": password,
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "new password, at least 6 characters")

	return cmd
}
