package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kati2710/BDC/internal/catalog"
)

// SchemaOptions holds options for the schema command.
type SchemaOptions struct {
	Refresh bool
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	opts := &SchemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the warehouse schema description",
		Long: `Print the schema description the SQL drafting model receives.

Tables are listed per scope with their columns in order, followed by the
orientation rules appended to every drafting prompt.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "Describe the warehouse again instead of serving a cached description")

	return cmd
}

func runSchema(cmd *cobra.Command, opts *SchemaOptions) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	ad, err := connectAdapter(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = ad.Close() }()

	cache := catalog.NewCache(newDescriber(ad, cfg, logger), cfg.SchemaTTL, logger)

	var text string
	if opts.Refresh {
		text, err = cache.Refresh(cmd.Context())
	} else {
		text, err = cache.Text(cmd.Context())
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
