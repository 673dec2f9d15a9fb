package main

import (
	"fmt"

	"github.com/Veraticus/smsflow/internal/cli"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/Veraticus/smsflow/internal/service"
	"github.com/spf13/cobra"
)

func linksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "List linked transfers",
		Long: `List transactions the detector or you linked, grouped by link id.
Single-sided transfers such as card bill payments appear as a group of one.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			txns, err := store.GetTransactions(ctx, service.TransactionFilter{LinkedOnly: true})
			if err != nil {
				return fmt.Errorf("failed to list linked transactions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No linked transactions."))
				return nil
			}

			var order []string
			groups := make(map[string][]*model.Transaction)
			for i := range txns {
				key := txns[i].LinkID
				if key == "" {
					key = txns[i].ID
				}
				if _, ok := groups[key]; !ok {
					order = append(order, key)
				}
				groups[key] = append(groups[key], &txns[i])
			}

			var rows [][]string
			for _, key := range order {
				for _, t := range groups[key] {
					rows = append(rows, cli.TransactionRow(t))
				}
			}
			fmt.Fprintln(out, cli.RenderTable(cli.TransactionHeaders, rows))
			fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d links, %d transactions", len(order), len(txns))))
			return nil
		},
	}
}

func linkCmd() *cobra.Command {
	var possible bool

	cmd := &cobra.Command{
		Use:   "link <debit-id> <credit-id>",
		Short: "Link two transactions as a transfer by hand",
		Long: `Link a debit and a credit of the same money as a transfer between your own
accounts. Both stop counting as spend and the pair teaches the detector.

With --possible the pair is only flagged as a possible transfer: it keeps
counting as spend and nothing is learned.`,
		Example: `  smsflow link 0f8fad5b 7c9e6679
  smsflow link 0f8fad5b 7c9e6679 --possible`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			aID, err := resolveID(ctx, a.store, args[0])
			if err != nil {
				return err
			}
			bID, err := resolveID(ctx, a.store, args[1])
			if err != nil {
				return err
			}

			decision, err := a.engine.Detector().LinkPair(ctx, aID, bID, possible)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Linked as %s (%d), link %s",
				decision.Link.Type, decision.Link.Confidence, decision.Link.ID)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&possible, "possible", false, "flag as a possible transfer only")

	return cmd
}

func unlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <id>",
		Short: "Remove the link of a transaction and its partner",
		Long: `Clear the link fields of a transaction and of every transaction sharing
its link id. Learned patterns are kept; run relink --reset to rebuild them.`,
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
			cleared, err := a.engine.Detector().Unlink(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Unlinked %d transaction(s)", len(cleared))))
			return nil
		},
	}
}
