package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/storefront/internal/stores"
)

// NewStoresCommand groups the listing operations.
func NewStoresCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "Browse and manage store listings",
	}

	cmd.AddCommand(newListStoresCommand(rootOpts, "list", "List stores", stores.OpFetchStores, true))
	cmd.AddCommand(newListStoresCommand(rootOpts, "mine", "List your own stores", stores.OpFetchMyStores, false))
	cmd.AddCommand(newIDCommand(rootOpts, "get <id>", "Show one store", stores.OpFetchStoreByID))
	cmd.AddCommand(newCreateStoreCommand(rootOpts))
	cmd.AddCommand(newUpdateStoreCommand(rootOpts))
	cmd.AddCommand(newIDCommand(rootOpts, "delete <id>", "Delete one of your stores", stores.OpDeleteStore))
	cmd.AddCommand(newSearchCommand(rootOpts))

	return cmd
}

// filterFlags binds the store filter flags. Only flags the user set end up
// in the filter, so unset fields are never sent.
type filterFlags struct {
	status, category, search string
	owner                    int64
	minRating                float64
	page, limit              int
}

func (f *filterFlags) bind(fs *pflag.FlagSet, withOwner bool) {
	fs.StringVar(&f.status, "status", "", "PENDING, APPROVED or REJECTED")
	fs.StringVar(&f.category, "category", "", "category")
	fs.StringVar(&f.search, "search", "", "free-text search")
	if withOwner {
		fs.Int64Var(&f.owner, "owner", 0, "owner id")
	}
	fs.Float64Var(&f.minRating, "min-rating", 0, "minimum average rating")
	fs.IntVar(&f.page, "page", 0, "page number, from 1")
	fs.IntVar(&f.limit, "limit", 0, "page size")
}

func (f *filterFlags) args(fs *pflag.FlagSet) map[string]any {
	out := map[string]any{}
	set := func(flag, key string, v any) {
		if fs.Changed(flag) {
			out[key] = v
		}
	}
	set("status", "status", f.status)
	set("category", "category", f.category)
	set("search", "search", f.search)
	set("owner", "ownerId", f.owner)
	set("min-rating", "minRating", f.minRating)
	set("page", "page", f.page)
	set("limit", "limit", f.limit)
	return out
}

func newListStoresCommand(rootOpts *RootOptions, use, short, op string, withOwner bool) *cobra.Command {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, rootOpts, op, filters.args(cmd.Flags()))
		},
	}
	filters.bind(cmd.Flags(), withOwner)

	return cmd
}

// newIDCommand builds a command for an operation that takes a store or
// review id.
func newIDCommand(rootOpts *RootOptions, use, short, op string) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return dispatch(cmd, rootOpts, op, map[string]any{"id": id})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q: must be a positive integer", s))
	}
	return id, nil
}

// storeFields are the editable listing fields, keyed by flag name.
var storeFields = []struct{ flag, key, usage string }{
	{"name", "name", "store name"},
	{"description", "description", "description"},
	{"address", "address", "street address"},
	{"category", "category", "category"},
	{"phone", "phone", "phone number"},
	{"email", "email", "contact email"},
	{"website", "website", "website URL"},
	{"image", "image", "image URL"},
}

func bindStoreFields(fs *pflag.FlagSet) map[string]*string {
	values := make(map[string]*string, len(storeFields))
	for _, f := range storeFields {
		values[f.flag] = fs.String(f.flag, "", f.usage)
	}
	return values
}

// changedStoreFields returns the fields the user set. all includes unset
// ones as empty strings.
func changedStoreFields(fs *pflag.FlagSet, values map[string]*string, all bool) map[string]any {
	out := map[string]any{}
	for _, f := range storeFields {
		if all && (f.key == "name" || f.key == "description" || f.key == "address") || fs.Changed(f.flag) {
			out[f.key] = *values[f.flag]
		}
	}
	return out
}

func newCreateStoreCommand(rootOpts *RootOptions) *cobra.Command {
	var values map[string]*string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new store for moderation",
		Example: `  storefront stores create --name "Tea House" --description "Loose leaf" \
    --address "2 Leaf St" --email hello@tea.example`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, rootOpts, stores.OpCreateStore, changedStoreFields(cmd.Flags(), values, true))
		},
	}
	values = bindStoreFields(cmd.Flags())

	return cmd
}

func newUpdateStoreCommand(rootOpts *RootOptions) *cobra.Command {
	var values map[string]*string

	cmd := &cobra.Command{
		Use:           "update <id>",
		Short:         "Change fields of one of your stores",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch := changedStoreFields(cmd.Flags(), values, false)
			if len(patch) == 0 {
				return NewExitError(ExitCommandError, "nothing to update: set at least one field flag")
			}
			patch["id"] = id
			return dispatch(cmd, rootOpts, stores.OpUpdateStore, patch)
		},
	}
	values = bindStoreFields(cmd.Flags())

	return cmd
}

func newSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "search <term>",
		Short:         "Search approved stores",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, rootOpts, stores.OpSearchStores, map[string]any{"term": args[0]})
		},
	}
}
