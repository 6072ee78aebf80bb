package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Kati2710/BDC/internal/history"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit  int
	Format string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently answered questions",
		Long: `List recent questions with their statements and outcomes.

Entries are read from the history database written by serve and ask.`,
		Example: `  bdc history
  bdc history --limit 50
  bdc history --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	if cfg.HistoryPath == "" {
		return fmt.Errorf("history is disabled (history_path is empty)")
	}
	if _, err := os.Stat(cfg.HistoryPath); os.IsNotExist(err) {
		return fmt.Errorf("no history at %s (run 'bdc serve' or 'bdc ask' first)", cfg.HistoryPath)
	}

	store, err := history.Open(cfg.HistoryPath, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(cmd.Context(), opts.Limit)
	if err != nil {
		return err
	}

	return renderHistory(cmd.OutOrStdout(), entries, opts.Format)
}

func renderHistory(w io.Writer, entries []history.Entry, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "(0 entries)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Asked", "Status", "Question", "Rows", "Duration"})

	for _, e := range entries {
		t.AppendRow(table.Row{
			e.AskedAt.Local().Format("2006-01-02 15:04:05"),
			e.Status,
			truncate(e.Question, 60),
			e.RowCount,
			(time.Duration(e.DurationMS) * time.Millisecond).String(),
		})
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d entries)\n", len(entries))
	return nil
}
