package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Kati2710/BDC/internal/config"
	"github.com/Kati2710/BDC/internal/gateway"
)

// fromContext pulls the loaded config and logger out of the command context.
func fromContext(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg := GetConfig(cmd.Context())
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, GetLogger(cmd.Context()), nil
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		Long: `Start the HTTP gateway that answers questions over the warehouse.

Endpoints:
  POST /chat         answer a natural language question
  GET  /health       warehouse and schema cache status
  POST /clear-cache  invalidate the schema description
  GET  /history      recent questions and their statements`,
		Example: `  # Serve on the configured address
  bdc serve

  # Serve a local DuckDB file on another port
  bdc serve --db ./bdc.duckdb --addr :8080`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	p, err := buildPipeline(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	server := gateway.NewServer(p.gateway, gateway.ServerConfig{
		Addr:           cfg.ListenAddr,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	fmt.Printf("Starting gateway on %s (warehouse: %s)\n", cfg.ListenAddr, p.adapter.Name())
	fmt.Println("Press Ctrl+C to stop")

	return server.Serve(ctx)
}
