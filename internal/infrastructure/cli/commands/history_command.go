package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/shellgate/internal/app"
	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/infrastructure/cli/helpers"
	"github.com/doeshing/shellgate/internal/infrastructure/history"
	"github.com/doeshing/shellgate/internal/ports"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect executed command history",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistorySearchCommand(container),
		newHistoryClearCommand(container),
		newHistoryPruneCommand(container),
		newHistoryExportCommand(container),
		newHistoryStatsCommand(container),
	)

	return historyCmd
}

func newHistoryListCommand(container *app.Container) *cobra.Command {
	var (
		limit int
		user  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.Context(), cmd.OutOrStdout(), container.HistoryStore,
				domain.HistoryQuery{UserID: user, Limit: limit})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", domain.DefaultHistoryLimit, "Max entries to show")
	cmd.Flags().StringVar(&user, "user", "", "Only show entries for this user")
	return cmd
}

func newHistorySearchCommand(container *app.Container) *cobra.Command {
	var searchLimit int

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search history commands and targets for a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.Context(), cmd.OutOrStdout(), container.HistoryStore,
				domain.HistoryQuery{Search: args[0], Limit: searchLimit})
		},
	}

	cmd.Flags().IntVar(&searchLimit, "limit", domain.DefaultHistorySearchLimit, "Limit search results")
	return cmd
}

func newHistoryClearCommand(container *app.Container) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every history entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to clear %s without --force", container.HistoryStore.Path())
			}
			if err := container.HistoryStore.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm deletion")
	return cmd
}

func newHistoryPruneCommand(container *app.Container) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				days = container.Config.GetHistoryRetentionDays()
			}
			removed, err := container.HistoryStore.Prune(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("failed to prune old history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s entr%s older than %d days.\n",
				humanize.Comma(removed), plural(removed, "y", "ies"), days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Days to retain (default from config)")
	return cmd
}

func newHistoryExportCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path|->",
		Short: "Export history as JSON lines, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportHistory(cmd.Context(), cmd.OutOrStdout(), container.HistoryStore, args[0])
		},
	}
}

func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show success rate, top commands and risk distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryStats(cmd.Context(), cmd.OutOrStdout(), container.HistoryStore)
		},
	}
}

func listHistoryEntries(ctx context.Context, out io.Writer, store ports.HistoryRepository, query domain.HistoryQuery) error {
	records, err := store.Records(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to retrieve history records: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, msgNoHistoryRecorded)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tUSER\tTARGET\tRESULT\tRISK\tTOOK\tCOMMAND")
	for _, rec := range records {
		target := rec.TargetName
		if target == "" {
			target = domain.LocalTargetName
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(rec.Timestamp),
			rec.UserID,
			target,
			resultLabel(rec),
			rec.RiskLevel,
			rec.Duration.Round(time.Millisecond),
			rec.Command)
	}
	return w.Flush()
}

func resultLabel(rec domain.HistoryRecord) string {
	label := "ok"
	if !rec.Success {
		label = string(rec.Failure)
		if rec.Failure == domain.FailureNonZeroExit {
			label = fmt.Sprintf("exit %d", rec.ExitCode)
		}
	}
	if rec.Retries > 0 {
		label += fmt.Sprintf(" (%d retries)", rec.Retries)
	}
	return label
}

func exportHistory(ctx context.Context, stdout io.Writer, store ports.HistoryRepository, path string) error {
	out := stdout
	if path != "-" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, domain.SecureFilePermissions)
		if err != nil {
			return fmt.Errorf("failed to export history to %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	n, err := history.ExportJSON(ctx, store, out)
	if err != nil {
		return fmt.Errorf("failed to export history to %s: %w", path, err)
	}
	if path != "-" {
		fmt.Fprintf(stdout, "Exported %s entr%s to %s\n", humanize.Comma(int64(n)), plural(int64(n), "y", "ies"), path)
	}
	return nil
}

func showHistoryStats(ctx context.Context, out io.Writer, store ports.HistoryRepository) error {
	records, err := store.Records(ctx, domain.HistoryQuery{Limit: MaxHistoryAnalysisRecords})
	if err != nil {
		return fmt.Errorf("failed to retrieve history for analysis: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, msgNoHistoryRecorded)
		return nil
	}

	stats := helpers.AnalyzeHistory(records)
	fmt.Fprintf(out, "Entries analyzed: %d\nSuccess rate: %.1f%%\nRetried: %d\nTimed out: %d\n",
		stats.Total,
		helpers.CalculateSuccessRate(stats.Successful, stats.Total),
		stats.Retried,
		stats.TimedOut)

	fmt.Fprintln(out, "Top commands:")
	for _, stat := range helpers.CalculateTopCommands(stats.CommandFrequency, 5) {
		fmt.Fprintf(out, "  %s (%d)\n", stat.Command, stat.Count)
	}

	fmt.Fprintln(out, "Risk distribution:")
	for _, level := range []domain.RiskLevel{domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskCritical} {
		if count := stats.RiskCounts[level]; count > 0 {
			fmt.Fprintf(out, "  %s: %d\n", level, count)
		}
	}

	if hints := helpers.DeriveUndoHints(records); len(hints) > 0 {
		fmt.Fprintln(out, "Undo hints:")
		for _, hint := range hints {
			fmt.Fprintf(out, "  - %s\n", hint)
		}
	}
	return nil
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
