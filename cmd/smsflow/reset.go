package main

import (
	"fmt"

	"github.com/Veraticus/smsflow/internal/cli"
	"github.com/spf13/cobra"
)

func resetCmd() *cobra.Command {
	var force, patterns bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored transactions",
		Long: `Delete every stored transaction so messages can be imported again from
scratch. Corrections, ignore patterns and self recipients are kept. An
automatic checkpoint is taken first.

With --patterns the learned transfer patterns are deleted too.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			count, err := a.store.CountTransactions(ctx)
			if err != nil {
				return err
			}
			if count == 0 && !patterns {
				fmt.Fprintln(out, "No transactions found. Nothing to reset.")
				return nil
			}

			if !force {
				fmt.Fprintf(out, "This will delete %d transactions.\n", count)
				if patterns {
					fmt.Fprintln(out, "This will also delete all learned transfer patterns.")
				}
				ok, err := confirm(cmd.InOrStdin(), out, "\nAre you sure you want to continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Reset canceled.")
					return nil
				}
			}

			if err := a.engine.Reset(ctx, patterns); err != nil {
				return err
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted %d transactions", count)))
			fmt.Fprintln(out, cli.SubtleStyle.Render("Run `smsflow import` to load messages again."))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&patterns, "patterns", false, "also delete learned transfer patterns")

	return cmd
}
