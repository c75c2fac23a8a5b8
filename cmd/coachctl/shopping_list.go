package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	mealplandomain "github.com/brikx/coach/internal/mealplan/domain"
	"github.com/brikx/coach/internal/mealplan/shoppinglist"
	timeentrydomain "github.com/brikx/coach/internal/timeentry/domain"
	"github.com/spf13/cobra"
)

var (
	shoppingWeek        string
	shoppingShowChecked bool
)

var shoppingListCmd = &cobra.Command{
	Use:   "shopping-list",
	Short: "Print the merged shopping list for a week",
	Args:  cobra.NoArgs,
	RunE:  runShoppingList,
}

func init() {
	shoppingListCmd.Flags().StringVar(&shoppingWeek, "week", "", "Any date (YYYY-MM-DD) in the week; defaults to this week")
	shoppingListCmd.Flags().BoolVar(&shoppingShowChecked, "checked", false, "Also list checked items")
}

func runShoppingList(cmd *cobra.Command, args []string) error {
	return withServices(cmd, func(ctx context.Context, svc services) error {
		list, err := svc.MealPlan.ShoppingList(ctx, strings.TrimSpace(shoppingWeek))
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), list)
		}
		return writeShoppingList(cmd.OutOrStdout(), list, shoppingShowChecked)
	})
}

func writeShoppingList(out io.Writer, list *mealplandomain.ShoppingListResponse, showChecked bool) error {
	fmt.Fprintf(out, "Week of %s\n", list.WeekStart.Format(timeentrydomain.DateLayout))
	if len(list.Active) == 0 {
		fmt.Fprintln(out, "\nnothing to buy")
	}
	for _, group := range list.Active {
		fmt.Fprintf(out, "\n%s\n", strings.ToUpper(group.Category))
		for _, item := range group.Items {
			fmt.Fprintf(out, "  [ ] %s\n", formatItem(item))
		}
	}
	if showChecked && len(list.Checked) > 0 {
		fmt.Fprintln(out, "\nCHECKED")
		for _, item := range list.Checked {
			fmt.Fprintf(out, "  [x] %s\n", formatItem(item))
		}
	}
	return nil
}

func formatItem(item shoppinglist.Item) string {
	qty := item.Quantity.String()
	if unit := strings.TrimSpace(item.Unit); unit != "" {
		qty += " " + unit
	}
	suffix := ""
	if item.Manual && !item.FromRecipes {
		suffix = " (added)"
	}
	return fmt.Sprintf("%s, %s%s", item.Name, qty, suffix)
}
