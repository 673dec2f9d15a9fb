package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/smsflow/internal/cli"
	"github.com/Veraticus/smsflow/internal/engine"
	"github.com/Veraticus/smsflow/internal/source"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import SMS messages from export files",
		Long: `Read exported SMS messages, classify the ones that report a transaction,
store them and link transfers between your own accounts.

Supported formats are JSON lines ({"sender","body","timestamp_ms"}), CSV with a
sender,timestamp_ms,body header, and SMS Backup & Restore XML. Messages already
in the database are skipped, so the same export can be imported again safely.`,
		Example: `  # Import a phone backup
  smsflow import sms-20240501.xml

  # Import a CSV export whose extension does not say what it is
  smsflow import --format csv messages.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringP("format", "f", "", "message format (auto, jsonl, csv, xml); default from import.format")
	cmd.Flags().Bool("no-progress", false, "do not draw progress bars")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	format := source.FormatAuto
	if appConfig != nil {
		format = appConfig.Import.Format
	}
	if flag, _ := cmd.Flags().GetString("format"); flag != "" {
		parsed, err := source.ParseFormat(flag)
		if err != nil {
			return err
		}
		format = parsed
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), "Import", true)

	var opts []engine.Option
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress {
		opts = append(opts, engine.WithProgress(cli.NewProgress(cmd.ErrOrStderr())))
	}

	a, err := openApp(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	var total engine.ImportStats
	for _, path := range args {
		src, err := source.Open(path, format)
		if err != nil {
			return err
		}

		slog.Info("Importing messages", "file", path, "format", format)
		stats, importErr := a.engine.Import(ctx, src)
		if closeErr := src.Close(); closeErr != nil {
			slog.Warn("Failed to close message source", "file", path, "error", closeErr)
		}
		if stats != nil {
			addStats(&total, stats)
		}
		if importErr != nil {
			if handler.WasInterrupted() {
				printImportStats(out, &total)
				return nil
			}
			return fmt.Errorf("failed to import %s: %w", path, importErr)
		}
	}

	printImportStats(out, &total)
	return nil
}

func addStats(total, s *engine.ImportStats) {
	total.Read += s.Read
	total.Malformed += s.Malformed
	total.Rejected += s.Rejected
	total.Dropped += s.Dropped
	total.Duplicates += s.Duplicates
	total.Stored += s.Stored
	total.Ignored += s.Ignored
	total.Linked += s.Linked
	total.Duration += s.Duration
}

func printImportStats(w io.Writer, s *engine.ImportStats) {
	lines := []string{
		fmt.Sprintf("Messages read:    %d", s.Read),
		fmt.Sprintf("Stored:           %s", cli.SuccessStyle.Render(fmt.Sprint(s.Stored))),
		fmt.Sprintf("Already imported: %d", s.Duplicates),
		fmt.Sprintf("Not transactions: %d", s.Rejected+s.Dropped),
		fmt.Sprintf("Linked transfers: %s", cli.LinkedStyle.Render(fmt.Sprint(s.Linked))),
	}
	if s.Ignored > 0 {
		lines = append(lines, fmt.Sprintf("Ignored:          %d", s.Ignored))
	}
	if s.Malformed > 0 {
		lines = append(lines, cli.WarningStyle.Render(fmt.Sprintf("Malformed rows:   %d", s.Malformed)))
	}
	lines = append(lines, cli.SubtleStyle.Render(fmt.Sprintf("Took %s", s.Duration.Round(time.Millisecond))))

	fmt.Fprintln(w, cli.RenderBox(cli.InboxIcon+" Import complete", strings.Join(lines, "\n")))
}
