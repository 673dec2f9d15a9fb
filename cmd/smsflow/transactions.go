package main

import (
	"fmt"

	"github.com/Veraticus/smsflow/internal/cli"
	"github.com/Veraticus/smsflow/internal/service"
	"github.com/spf13/cobra"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn", "tx"},
		Short:   "List, inspect and ignore stored transactions",
		Long: `Browse the transactions extracted from imported messages.

Commands that take a transaction id accept any unique prefix of it, as shown
in the ID column of the list.`,
	}

	cmd.AddCommand(listTransactionsCmd())
	cmd.AddCommand(showTransactionCmd())
	cmd.AddCommand(ignoreTransactionCmd())

	return cmd
}

func listTransactionsCmd() *cobra.Command {
	var (
		from, to         string
		sender, merchant string
		limit            int
		linked           bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Example: `  # Everything from one bank in April
  smsflow transactions list --sender VM-HDFCBK --from 2024-04-01 --to 2024-04-30

  # Only records the link detector touched
  smsflow transactions list --linked`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.TransactionFilter{
				Sender:     sender,
				Merchant:   merchant,
				Limit:      limit,
				LinkedOnly: linked,
			}
			if from != "" || to != "" {
				start, end, err := parseDateRange(from, to, timeNow())
				if err != nil {
					return err
				}
				filter.StartDate = &start
				filter.EndDate = &end
			}

			txns, err := store.GetTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No transactions found."))
				return nil
			}

			rows := make([][]string, 0, len(txns))
			for i := range txns {
				rows = append(rows, cli.TransactionRow(&txns[i]))
			}
			fmt.Fprintln(out, cli.RenderTable(cli.TransactionHeaders, rows))
			fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d transactions", len(txns))))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sender, "sender", "", "only messages from this sender address")
	cmd.Flags().StringVar(&merchant, "merchant", "", "only this merchant")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of rows (0 for all)")
	cmd.Flags().BoolVar(&linked, "linked", false, "only linked or net-zero transactions")

	return cmd
}

func showTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := resolveID(ctx, store, args[0])
			if err != nil {
				return err
			}
			txn, err := store.GetByID(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTransaction(txn))

			if txn.LinkID != "" {
				partners, err := store.GetByLinkID(ctx, txn.LinkID)
				if err != nil {
					return fmt.Errorf("failed to load linked transactions: %w", err)
				}
				for i := range partners {
					if partners[i].ID == txn.ID {
						continue
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, cli.FormatTitle(cli.LinkIcon, "Linked with"))
					fmt.Fprintln(out, cli.RenderTable(cli.TransactionHeaders, [][]string{cli.TransactionRow(&partners[i])}))
				}
			}
			return nil
		},
	}
}

func ignoreTransactionCmd() *cobra.Command {
	var always, undo bool

	cmd := &cobra.Command{
		Use:   "ignore <id>",
		Short: "Exclude a transaction from spend totals",
		Long: `Mark a transaction as ignored so it no longer counts as spend.

With --always the merchant is remembered and every existing and future
transaction with that merchant is ignored too. --undo reverses either form.`,
		Example: `  smsflow transactions ignore 0f8fad5b
  smsflow transactions ignore 0f8fad5b --always
  smsflow transactions ignore 0f8fad5b --always --undo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := resolveID(ctx, a.store, args[0])
			if err != nil {
				return err
			}

			n, err := a.engine.SetIgnored(ctx, id, !undo, always)
			if err != nil {
				return err
			}

			verb := "Ignored"
			if undo {
				verb = "Restored"
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s %d transaction(s)", verb, n)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&always, "always", false, "apply to every transaction with the same merchant, now and on future imports")
	cmd.Flags().BoolVar(&undo, "undo", false, "stop ignoring instead")

	return cmd
}
