package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/smsflow/internal/cli"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	var sender string

	cmd := &cobra.Command{
		Use:   "classify <body>",
		Short: "Explain how one message would be classified",
		Long: `Run a single message through extraction and classification without
storing it, and print the reasoning of every stage. Merchant and category
corrections already saved in the database are applied.`,
		Example: `  smsflow classify --sender VM-HDFCBK "Rs.500 debited from a/c XX1234 to VPA swiggy@icici"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Explain(cmd.Context(), model.RawMessage{
				Sender:    sender,
				Body:      args[0],
				Timestamp: time.Now(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verdict := cli.FormatWarning("Not a transaction")
			if res.Rejected {
				verdict = cli.FormatWarning("Rejected: no usable amount")
			}

			var lines []string
			if c := res.Txn; c != nil {
				lines = append(lines,
					fmt.Sprintf("Amount:   %s", cli.FormatAmount(c.Amount, c.Type())),
					fmt.Sprintf("Sender:   %s", c.SenderType),
					fmt.Sprintf("Intent:   %s", c.Intent),
					fmt.Sprintf("Merchant: %s", c.Merchant),
					fmt.Sprintf("Category: %s", c.Category),
				)
				verdict = cli.FormatSuccess("Transaction")
			}
			lines = append(lines, "")
			for _, reason := range res.Explanation.Lines() {
				lines = append(lines, cli.SubtleStyle.Render(reason))
			}

			fmt.Fprintln(out, cli.RenderBox(verdict, strings.Join(lines, "\n")))
			return nil
		},
	}

	cmd.Flags().StringVarP(&sender, "sender", "s", "", "sender address of the message, e.g. VM-HDFCBK")

	return cmd
}
