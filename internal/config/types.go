// Package config loads and validates the gateway configuration from
// defaults, an optional bdc.yaml file, BDC_-prefixed environment variables
// and CLI flags, in ascending precedence.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the bdc binary.
type Config struct {
	ListenAddr     string        `koanf:"listen_addr"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	DefaultLimit   int           `koanf:"default_limit"`
	MaxLimit       int           `koanf:"max_limit"`
	SchemaTTL      time.Duration `koanf:"schema_ttl"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	HistoryPath    string        `koanf:"history_path"`
	Verbose        bool          `koanf:"verbose"`

	Warehouse WarehouseConfig `koanf:"warehouse"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Policy    PolicyConfig    `koanf:"policy"`
	Datasets  []DatasetConfig `koanf:"datasets"`

	// FileUsed is the config file the loader read, if any.
	FileUsed string `koanf:"-"`
}

// WarehouseConfig selects and parameterizes the warehouse adapter.
type WarehouseConfig struct {
	// Type is the adapter name: duckdb or postgres.
	Type string `koanf:"type"`
	// Path is the DuckDB database file; empty means in-memory unless a
	// MotherDuck database is configured.
	Path string `koanf:"path"`
	// Database is the MotherDuck database name for md: connections.
	Database        string `koanf:"database"`
	MotherDuckToken string `koanf:"motherduck_token"`
	// DSN is the connection string for postgres.
	DSN string `koanf:"dsn"`
	// Scopes restricts schema discovery to the given catalog/schema pairs.
	// Empty means every non-system schema.
	Scopes []ScopeConfig `koanf:"scopes"`
}

// ScopeConfig names one catalog/schema pair visible to the describer.
type ScopeConfig struct {
	Catalog string `koanf:"catalog"`
	Schema  string `koanf:"schema"`
}

// OpenAIConfig parameterizes the chat-completions client.
type OpenAIConfig struct {
	APIKey      string `koanf:"api_key"`
	BaseURL     string `koanf:"base_url"`
	SQLModel    string `koanf:"sql_model"`
	AnswerModel string `koanf:"answer_model"`
}

// PolicyConfig configures statement rewriting and provenance enforcement.
type PolicyConfig struct {
	// Aliases maps canonical table names to the physical tables of the
	// current load. A list rather than a map: canonical names contain
	// dots, which the config key delimiter would otherwise split.
	Aliases []AliasConfig `koanf:"aliases"`
	// AuditPrefix marks regulated sources (default bdc.dou.).
	AuditPrefix string `koanf:"audit_prefix"`
	// AuditColumns are the provenance columns regulated statements must
	// carry.
	AuditColumns []string `koanf:"audit_columns"`
}

// AliasConfig maps one canonical table name to its physical table.
type AliasConfig struct {
	Canonical string `koanf:"canonical"`
	Physical  string `koanf:"physical"`
}

// AliasMap returns the aliases as a canonical->physical map.
func (p *PolicyConfig) AliasMap() map[string]string {
	if len(p.Aliases) == 0 {
		return nil
	}
	m := make(map[string]string, len(p.Aliases))
	for _, a := range p.Aliases {
		if a.Canonical != "" && a.Physical != "" {
			m[a.Canonical] = a.Physical
		}
	}
	return m
}

// DatasetConfig overrides or extends the built-in dataset descriptors.
type DatasetConfig struct {
	Table       string `koanf:"table"`
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	Period      string `koanf:"period"`
	OriginURL   string `koanf:"origin_url"`
}

// Validate checks cross-field consistency after loading.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Warehouse.Type) {
	case "duckdb":
		// Path, Database and in-memory are all valid.
	case "postgres":
		if c.Warehouse.DSN == "" {
			return fmt.Errorf("warehouse.dsn is required when warehouse.type is postgres")
		}
	case "":
		return fmt.Errorf("warehouse.type is required")
	default:
		return fmt.Errorf("unknown warehouse.type %q (expected duckdb or postgres)", c.Warehouse.Type)
	}

	if c.DefaultLimit < 0 {
		return fmt.Errorf("default_limit must not be negative")
	}
	if c.MaxLimit > 0 && c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit (%d) must not be below default_limit (%d)", c.MaxLimit, c.DefaultLimit)
	}
	if c.SchemaTTL < 0 {
		return fmt.Errorf("schema_ttl must not be negative")
	}
	return nil
}

// MotherDuck reports whether the DuckDB adapter should open a md: DSN.
func (w *WarehouseConfig) MotherDuck() bool {
	return strings.EqualFold(w.Type, "duckdb") && w.Database != "" && w.Path == ""
}
