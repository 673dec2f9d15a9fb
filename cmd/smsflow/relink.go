package main

import (
	"fmt"

	"github.com/Veraticus/smsflow/internal/cli"
	"github.com/spf13/cobra"
)

func relinkCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "relink",
		Short: "Run the transfer detector over every stored transaction",
		Long: `Re-run the link detector over all transactions in chronological order.
This finishes linking after an interrupted import and picks up newly declared
self recipients.

With --reset every link and learned pattern is cleared first, after an
automatic checkpoint, and rebuilt from scratch. Manual links are lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context(), "Relink", true)

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.engine.Reprocess(ctx, reset)
			if err != nil && !handler.WasInterrupted() {
				return err
			}
			if stats != nil {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
					"Processed %d transactions, %d linked", stats.Processed, stats.Linked)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "clear all links and learned patterns first")

	return cmd
}
