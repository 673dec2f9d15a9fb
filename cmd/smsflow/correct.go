package main

import (
	"fmt"

	"github.com/Veraticus/smsflow/internal/cli"
	"github.com/spf13/cobra"
)

func correctCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Correct a merchant or category and reclassify",
		Long: `Save a correction and apply it to every matching transaction.

A merchant correction applies to every message from the same sender. A
category correction applies to every transaction with the same merchant.
Corrections are remembered and used on future imports.`,
	}

	cmd.AddCommand(correctMerchantCmd())
	cmd.AddCommand(correctCategoryCmd())

	return cmd
}

func correctMerchantCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "merchant <id> <name>",
		Short:   "Set the merchant for a transaction's sender",
		Example: `  smsflow correct merchant 0f8fad5b "Amazon"`,
		Args:    cobra.ExactArgs(2),
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
			n, err := a.engine.CorrectMerchant(ctx, id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Merchant set to %q, %d transaction(s) reclassified", args[1], n)))
			return nil
		},
	}
}

func correctCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "category <id> <category>",
		Short:   "Set the category for a transaction's merchant",
		Example: `  smsflow correct category 0f8fad5b groceries`,
		Args:    cobra.ExactArgs(2),
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
			n, err := a.engine.CorrectCategory(ctx, id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Category updated, %d transaction(s) reclassified", n)))
			return nil
		},
	}
}
