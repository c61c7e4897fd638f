package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/expiry-tracker/constants"
	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
	"github.com/joseph-ayodele/expiry-tracker/internal/repository"
)

var (
	listFilter  string
	listSearch  string
	listDeleted bool
	listJSON    bool
	listNow     string
	listLimit   int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored products, soonest expiry first",
	Long: `List prints the owner's products ordered by expiry date, with the
status and days left computed for today.

Filters: ` + strings.Join(constants.FiltersAsStringSlice(), ", ") + `

Example:
  expiry-tracker list --filter expiring_soon
  expiry-tracker list --search yoghurt
  expiry-tracker list --deleted`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "all", "which products to show")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "product name contains")
	listCmd.Flags().BoolVar(&listDeleted, "deleted", false, "show the recycle bin instead")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
	listCmd.Flags().StringVar(&listNow, "now", "", "reference date (YYYY-MM-DD, default today)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of products (0 = all)")
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	filter, ok := constants.ParseFilter(listFilter)
	if !ok {
		return fmt.Errorf("unknown filter %q (want one of %s)", listFilter, strings.Join(constants.FiltersAsStringSlice(), ", "))
	}
	now, err := referenceTime(listNow)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	owner, err := a.requireOwner()
	if err != nil {
		return err
	}

	var (
		items []*entity.Product
		title string
	)
	if listDeleted {
		items, err = a.products.ListDeleted(ctx, owner)
		title = "Recycle bin"
	} else {
		items, err = a.finder().List(ctx, repository.ListQuery{
			Owner:  owner,
			Filter: filter,
			Search: listSearch,
			Now:    now,
			Limit:  listLimit,
		})
		title = fmt.Sprintf("Products (%s)", filter)
	}
	if err != nil {
		return err
	}

	if listJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	printProducts(cmd.OutOrStdout(), title, items, now)
	if !listDeleted && filter == constants.FilterAll {
		dates, err := a.products.ExpiryDates(ctx, owner)
		if err != nil {
			return err
		}
		s := extract.Summarize(dates, now)
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
			expiredStyle.Render(fmt.Sprintf("%d expired", s.Expired)),
			soonStyle.Render(fmt.Sprintf("%d expiring soon", s.ExpiringSoon)),
			freshStyle.Render(fmt.Sprintf("%d fresh", s.Fresh)),
		)
	}
	return nil
}
