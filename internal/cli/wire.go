package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Kati2710/BDC/internal/adapter"
	"github.com/Kati2710/BDC/internal/catalog"
	"github.com/Kati2710/BDC/internal/config"
	"github.com/Kati2710/BDC/internal/dataset"
	"github.com/Kati2710/BDC/internal/executor"
	"github.com/Kati2710/BDC/internal/gateway"
	"github.com/Kati2710/BDC/internal/guard"
	"github.com/Kati2710/BDC/internal/history"
	"github.com/Kati2710/BDC/internal/llm"
)

// pipeline bundles a wired gateway with the resources it owns.
type pipeline struct {
	gateway *gateway.Gateway
	adapter adapter.Adapter
	history *history.Store
}

// Close releases the warehouse connection and the history store.
func (p *pipeline) Close() {
	if p.history != nil {
		_ = p.history.Close()
	}
	if p.adapter != nil {
		_ = p.adapter.Close()
	}
}

// connectAdapter creates the configured warehouse adapter and dials it.
func connectAdapter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (adapter.Adapter, error) {
	adapterCfg := adapter.Config{
		Type:            cfg.Warehouse.Type,
		Path:            cfg.Warehouse.Path,
		Database:        cfg.Warehouse.Database,
		MotherDuckToken: cfg.Warehouse.MotherDuckToken,
		DSN:             cfg.Warehouse.DSN,
	}

	ad, err := adapter.New(adapterCfg, logger)
	if err != nil {
		return nil, err
	}
	if err := ad.Connect(ctx, adapterCfg); err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	return ad, nil
}

// newDescriber builds the schema describer over the adapter, scoped and
// aliased per config.
func newDescriber(ad adapter.Adapter, cfg *config.Config, logger *slog.Logger) *catalog.Describer {
	scopes := make([]catalog.Scope, 0, len(cfg.Warehouse.Scopes))
	for _, s := range cfg.Warehouse.Scopes {
		scopes = append(scopes, catalog.Scope{Catalog: s.Catalog, Schema: s.Schema})
	}
	return catalog.NewDescriber(ad, scopes, cfg.Policy.AliasMap(), logger)
}

// buildPipeline assembles the full question pipeline from the configuration.
// The caller owns the returned pipeline and must Close it.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	ad, err := connectAdapter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	cache := catalog.NewCache(newDescriber(ad, cfg, logger), cfg.SchemaTTL, logger)

	policy := guard.NewPolicy(guard.PolicyConfig{
		Aliases:      cfg.Policy.AliasMap(),
		DefaultLimit: cfg.DefaultLimit,
		AuditPrefix:  cfg.Policy.AuditPrefix,
		AuditColumns: cfg.Policy.AuditColumns,
	})

	client := llm.NewClient(llm.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		SQLModel:    cfg.OpenAI.SQLModel,
		AnswerModel: cfg.OpenAI.AnswerModel,
	}, logger)

	extra := make([]dataset.Meta, 0, len(cfg.Datasets))
	for _, d := range cfg.Datasets {
		extra = append(extra, dataset.Meta{
			Table:       d.Table,
			Name:        d.Name,
			Description: d.Description,
			Period:      d.Period,
			OriginURL:   d.OriginURL,
		})
	}
	datasets, err := dataset.New(extra)
	if err != nil {
		_ = ad.Close()
		return nil, fmt.Errorf("invalid dataset config: %w", err)
	}

	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.Open(cfg.HistoryPath, logger)
		if err != nil {
			_ = ad.Close()
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
	}

	g := gateway.New(gateway.Config{
		Cache:        cache,
		LLM:          client,
		Policy:       policy,
		Executor:     executor.New(ad, logger),
		Datasets:     datasets,
		History:      store,
		Logger:       logger,
		Warehouse:    ad.Name(),
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	})

	return &pipeline{gateway: g, adapter: ad, history: store}, nil
}
