package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/smsflow/internal/cli"
	"github.com/spf13/cobra"
)

func selfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self",
		Short: "Manage names that are your own accounts",
		Long: `Payments to or from a declared self recipient are treated as transfers
between your own accounts when no matching counterpart message is found.
Names are matched the way merchants are, ignoring case and punctuation.`,
		Example: `  smsflow self add "Priya Sharma"
  smsflow self list`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Declare a name as one of your accounts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			name := strings.Join(args, " ")
			if err := store.AddSelfRecipient(ctx, name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added self recipient %q", name)))
			fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Run `smsflow relink` to apply it to existing transactions."))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Forget a self recipient",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			name := strings.Join(args, " ")
			if err := store.RemoveSelfRecipient(ctx, name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Removed self recipient %q", name)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List self recipients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			names, err := store.ListSelfRecipients(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No self recipients declared."))
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	})

	return cmd
}
