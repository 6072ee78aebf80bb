// Package catalog renders the warehouse schema as the orientation text the
// model drafts SQL against.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Kati2710/BDC/internal/adapter"
)

// ErrSchemaUnavailable marks introspection failures. Callers branch on it
// with errors.Is.
var ErrSchemaUnavailable = errors.New("schema unavailable")

// Querier is the slice of the adapter the describer needs.
type Querier interface {
	Query(ctx context.Context, sql string) (*adapter.Rows, error)
}

// Scope names one catalog/schema pair visible to the describer.
type Scope struct {
	Catalog string
	Schema  string
}

// Describer introspects information_schema and renders a deterministic
// description: one block per table, columns in ordinal order, followed by
// the fixed orientation rules.
type Describer struct {
	querier Querier
	scopes  []Scope
	// display maps physical table names back to their canonical names, so
	// the model only ever sees the names the policy layer translates.
	display map[string]string
	logger  *slog.Logger
}

// NewDescriber creates a describer over the given scopes. Empty scopes mean
// every non-system schema. The aliases argument is the policy's canonical to
// physical map; it is inverted here for display.
func NewDescriber(q Querier, scopes []Scope, aliases map[string]string, logger *slog.Logger) *Describer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	display := make(map[string]string, len(aliases))
	for canonical, physical := range aliases {
		display[strings.ToLower(physical)] = canonical
	}
	return &Describer{querier: q, scopes: scopes, display: display, logger: logger}
}

// Describe renders the current schema text. Failures wrap
// ErrSchemaUnavailable.
func (d *Describer) Describe(ctx context.Context) (string, error) {
	rows, err := d.querier.Query(ctx, d.introspectionSQL())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var b strings.Builder
	b.WriteString("Esquema do banco de dados:\n")

	var (
		current string
		tables  int
	)
	for rows.Next() {
		var catalog, schema, table, column, dataType string
		if err := rows.Scan(&catalog, &schema, &table, &column, &dataType); err != nil {
			return "", fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
		}

		full := catalog + "." + schema + "." + table
		if name, ok := d.display[strings.ToLower(full)]; ok {
			full = name
		}
		if full != current {
			b.WriteString("\n### " + full + "\n")
			current = full
			tables++
		}
		b.WriteString("  - " + column + " " + dataType + "\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
	}
	if tables == 0 {
		return "", fmt.Errorf("%w: no tables visible in the configured scopes", ErrSchemaUnavailable)
	}

	b.WriteString("\n" + orientation)

	d.logger.Debug("schema described", "tables", tables)
	return b.String(), nil
}

// introspectionSQL builds one statement covering every scope. Scope names
// are inlined as escaped literals because the duckdb and pgx drivers
// disagree on placeholder syntax.
func (d *Describer) introspectionSQL() string {
	var b strings.Builder
	b.WriteString(`SELECT table_catalog, table_schema, table_name, column_name, data_type
FROM information_schema.columns
WHERE `)
	if len(d.scopes) == 0 {
		b.WriteString(`table_schema NOT IN ('information_schema', 'pg_catalog')
  AND table_catalog NOT IN ('system', 'temp')`)
	} else {
		for i, s := range d.scopes {
			if i > 0 {
				b.WriteString("\n   OR ")
			}
			fmt.Fprintf(&b, "(table_catalog = %s AND table_schema = %s)",
				quoteLiteral(s.Catalog), quoteLiteral(s.Schema))
		}
	}
	b.WriteString("\nORDER BY table_catalog, table_schema, table_name, ordinal_position")
	return b.String()
}

// quoteLiteral wraps s as a SQL string literal, doubling embedded quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// orientation is the fixed rule block appended after the table listing.
// It is versioned with the code, not derived from the warehouse.
const orientation = `Regras para consultas:
1. Use apenas os nomes de tabela listados acima, sempre qualificados (catalogo.esquema.tabela).
2. Para contagens use COUNT(*). Nunca estime valores.
3. UF é sigla maiúscula ('SP', 'RJ'). Datas usam DATE '2025-01-01'.
4. CNPJ é dividido em cnpj_basico, cnpj_ordem e cnpj_dv.
5. Tabelas sob bdc.dou exigem as colunas fonte_url, fonte_data, fonte_linha e fonte_hash no SELECT.
6. Ao listar linhas, inclua LIMIT. Consultas agregadas não precisam de LIMIT.`
