package main

import (
	"fmt"
	"sort"

	"github.com/Veraticus/smsflow/internal/cli"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show debit spend per category",
		Long: `Total debit spend per category between two dates. Transfers between your
own accounts and ignored transactions are not spend and are left out.`,
		Example: `  # This month
  smsflow summary

  # A quarter
  smsflow summary --from 2024-04-01 --to 2024-06-30`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := parseDateRange(from, to, timeNow())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			summary, err := store.GetSpendSummary(ctx, start, end)
			if err != nil {
				return fmt.Errorf("failed to build summary: %w", err)
			}

			out := cmd.OutOrStdout()
			title := fmt.Sprintf("Spend %s to %s", start.Format(dateLayout), end.Format(dateLayout))
			fmt.Fprintln(out, cli.FormatTitle(cli.ChartIcon, title))

			if summary.Count == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No spend in this period."))
				return nil
			}

			categories := make([]string, 0, len(summary.ByCategory))
			for name := range summary.ByCategory {
				categories = append(categories, name)
			}
			sort.Slice(categories, func(i, j int) bool {
				a, b := summary.ByCategory[categories[i]], summary.ByCategory[categories[j]]
				if !a.Amount.Equal(b.Amount) {
					return a.Amount.GreaterThan(b.Amount)
				}
				return categories[i] < categories[j]
			})

			rows := make([][]string, 0, len(categories)+1)
			for _, name := range categories {
				cs := summary.ByCategory[name]
				rows = append(rows, []string{name, fmt.Sprint(cs.Count), cli.FormatAmount(cs.Amount, model.TypeDebit)})
			}
			rows = append(rows, []string{"TOTAL", fmt.Sprint(summary.Count), cli.FormatAmount(summary.Total, model.TypeDebit)})

			fmt.Fprintln(out, cli.RenderTable([]string{"Category", "Count", "Amount"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD, default: start of this month)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD, default: end of this month)")

	return cmd
}
