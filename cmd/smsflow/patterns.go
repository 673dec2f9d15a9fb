package main

import (
	"fmt"
	"sort"

	"github.com/Veraticus/smsflow/internal/cli"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/spf13/cobra"
)

func patternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List learned transfer patterns",
		Long: `Show the merchant and phrase combinations learned from linked transfers.
A pattern learned on one side lets the detector link a lone message on the
other side to a transfer months apart.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			debits, err := store.LinkedPatterns(ctx, model.TypeDebit)
			if err != nil {
				return err
			}
			credits, err := store.LinkedPatterns(ctx, model.TypeCredit)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(debits)+len(credits))
			for key := range debits {
				keys = append(keys, key)
			}
			for key := range credits {
				if !debits[key] {
					keys = append(keys, key)
				}
			}
			sort.Strings(keys)

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No patterns learned yet."))
				return nil
			}

			mark := func(ok bool) string {
				if ok {
					return cli.SuccessStyle.Render(cli.SuccessIcon)
				}
				return ""
			}
			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				rows = append(rows, []string{key, mark(debits[key]), mark(credits[key])})
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"Pattern", "Debit", "Credit"}, rows))
			return nil
		},
	}
}
