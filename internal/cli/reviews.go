package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/storefront/internal/app"
)

// NewReviewsCommand groups the review operations.
func NewReviewsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Read and write reviews",
	}

	cmd.AddCommand(newOpCommand(rootOpts, "list", "List reviews", app.OpFetchReviews))
	cmd.AddCommand(newWriteReviewCommand(rootOpts, false))
	cmd.AddCommand(newWriteReviewCommand(rootOpts, true))
	cmd.AddCommand(newIDCommand(rootOpts, "delete <id>", "Delete a review", app.OpDeleteReview))

	return cmd
}

type reviewFlags struct {
	title, description, reviewer string
	rating                       int
	product                      int64
}

func (r *reviewFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&r.title, "title", "", "review title")
	fs.StringVar(&r.description, "description", "", "review text")
	fs.StringVar(&r.reviewer, "reviewer", "", "reviewer name")
	fs.IntVar(&r.rating, "rating", 0, "rating from 1 to 5")
	fs.Int64Var(&r.product, "product", 0, "store id the review is about")
}

func (r *reviewFlags) args() map[string]any {
	out := map[string]any{
		"title":       r.title,
		"description": r.description,
		"reviewer":    r.reviewer,
		"rating":      r.rating,
	}
	if r.product != 0 {
		out["productId"] = r.product
	}
	return out
}

func newWriteReviewCommand(rootOpts *RootOptions, update bool) *cobra.Command {
	var flags reviewFlags

	cmd := &cobra.Command{
		Use:           "create",
		Short:         "Write a review",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, rootOpts, app.OpCreateReview, flags.args())
		},
	}
	if update {
		cmd.Use = "update <id>"
		cmd.Short = "Replace a review"
		cmd.Args = cobra.ExactArgs(1)
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			payload := flags.args()
			payload["id"] = id
			return dispatch(cmd, rootOpts, app.OpUpdateReview, payload)
		}
	}
	flags.bind(cmd.Flags())

	return cmd
}
