// Package cli provides the command-line interface for the BDC gateway.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kati2710/BDC/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bdc",
		Short: "BDC - Base de Dados de CNPJ query gateway",
		Long: `BDC answers natural language questions about Brazilian public records.

It drafts SQL against a DuckDB or Postgres warehouse holding the CNPJ
registries and Diário Oficial da União publications, enforces read-only
and provenance policies on every statement, and summarizes the result in
Portuguese.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)

			if cfg.Verbose && cfg.FileUsed != "" {
				fmt.Fprintf(os.Stderr, "Using config file: %s\n", cfg.FileUsed)
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Natural language gateway for Brazilian public records
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./bdc.yaml)")
	rootCmd.PersistentFlags().String("addr", "", "Listen address for the HTTP gateway")
	rootCmd.PersistentFlags().String("db", "", "Path to the DuckDB database file")
	rootCmd.PersistentFlags().String("history", "", "Path to the query history database")
	rootCmd.PersistentFlags().Int("default-limit", 0, "Row limit appended to statements without one")
	rootCmd.PersistentFlags().Int("max-limit", 0, "Hard cap for request-supplied limits")
	rootCmd.PersistentFlags().Duration("schema-ttl", 0, "How long the schema description is cached")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewAskCommand())
	rootCmd.AddCommand(NewSchemaCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return nil
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
