package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kati2710/BDC/internal/gateway"
)

// AskOptions holds options for the ask command.
type AskOptions struct {
	Format string
	Limit  int
}

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	opts := &AskOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question without starting the server",
		Long: `Run the question pipeline once and print the result.

The question is translated to SQL, checked against the read-only and
provenance policies, executed against the warehouse, and summarized in
Portuguese. The statement and a row preview follow the answer.`,
		Example: `  bdc ask "quantas empresas ativas existem em SP?"

  # Raw response as JSON
  bdc ask "publicações do DOU de julho sobre a ACME" --format json

  # Larger preview
  bdc ask "sócios com mais de uma empresa" --limit 200`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Preview row limit (0 uses the configured default)")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, opts *AskOptions) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	p, err := buildPipeline(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	resp, err := p.gateway.Answer(cmd.Context(), gateway.ChatRequest{Query: question, Limit: opts.Limit})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	_, _ = fmt.Fprintln(w, resp.Answer)
	if resp.SQL != "" {
		_, _ = fmt.Fprintf(w, "\nSQL: %s\n", resp.SQL)
	}
	if len(resp.Rows) > 0 {
		_, _ = fmt.Fprintln(w)
		if err := renderRows(w, resp.Rows, opts.Format); err != nil {
			return err
		}
	}
	if resp.Total != nil {
		_, _ = fmt.Fprintf(w, "Total without limit: %d\n", *resp.Total)
	}
	return nil
}
