// Package gateway turns natural-language questions into guarded warehouse
// queries. It owns the request pipeline: describe schema, draft SQL, filter
// and rewrite it, execute, and compose the answer.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Kati2710/BDC/internal/catalog"
	"github.com/Kati2710/BDC/internal/dataset"
	"github.com/Kati2710/BDC/internal/executor"
	"github.com/Kati2710/BDC/internal/guard"
	"github.com/Kati2710/BDC/internal/history"
	"github.com/Kati2710/BDC/internal/llm"
)

// ChatRequest is the /chat request body. IncludeTotal defaults to true;
// explicit false skips the unbounded COUNT round-trip.
type ChatRequest struct {
	Query        string `json:"query"`
	IncludeTotal *bool  `json:"include_total,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// ChatResponse is the /chat response body. Total is null when the unbounded
// count was skipped or could not be determined; AuditSample is null unless
// the statement touched a regulated source and returned rows.
type ChatResponse struct {
	Answer        string           `json:"answer"`
	SQL           string           `json:"sql,omitempty"`
	Rows          []map[string]any `json:"rows_preview"`
	RowCount      int              `json:"preview_count"`
	Total         *int64           `json:"total_rows"`
	AuditSample   map[string]any   `json:"audit_sample"`
	AuditRequired bool             `json:"audit_required"`
	Dataset       *dataset.Meta    `json:"dataset_meta"`
	DurationMS    int64            `json:"duration_ms"`
}

// Config wires the gateway's collaborators. History may be nil to disable
// the query log.
type Config struct {
	Cache    *catalog.Cache
	LLM      *llm.Client
	Policy   *guard.Policy
	Executor *executor.Executor
	Datasets *dataset.Catalog
	History  *history.Store
	Logger   *slog.Logger

	// Warehouse is the adapter name, reported by /health.
	Warehouse string

	DefaultLimit int
	MaxLimit     int
}

// Gateway answers questions end to end.
type Gateway struct {
	cache    *catalog.Cache
	llm      *llm.Client
	policy   *guard.Policy
	executor *executor.Executor
	datasets *dataset.Catalog
	history  *history.Store
	logger   *slog.Logger

	warehouse    string
	defaultLimit int
	maxLimit     int
}

// New creates a gateway from cfg.
func New(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	return &Gateway{
		cache:        cfg.Cache,
		llm:          cfg.LLM,
		policy:       cfg.Policy,
		executor:     cfg.Executor,
		datasets:     cfg.Datasets,
		history:      cfg.History,
		logger:       logger,
		warehouse:    cfg.Warehouse,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}
}

const emptyQuestionAnswer = "Envie uma pergunta sobre os dados. Exemplo: quantas empresas estão ativas em São Paulo?"

// Answer runs the full pipeline for one question. A blank question and an
// unanswerable one are ordinary responses, not errors; everything else that
// goes wrong surfaces as an error for the HTTP layer to render.
func (g *Gateway) Answer(ctx context.Context, req ChatRequest) (resp *ChatResponse, err error) {
	started := time.Now()
	question := strings.TrimSpace(req.Query)

	if question == "" {
		return &ChatResponse{
			Answer:     emptyQuestionAnswer,
			Rows:       []map[string]any{},
			DurationMS: time.Since(started).Milliseconds(),
		}, nil
	}

	rec := history.Entry{Question: question, Status: history.StatusOK}
	defer func() {
		rec.DurationMS = time.Since(started).Milliseconds()
		if err != nil {
			rec.Status = history.StatusError
			rec.Error = err.Error()
		}
		g.record(rec)
	}()

	schema, err := g.cache.Text(ctx)
	if err != nil {
		return nil, err
	}

	draft, err := g.llm.DraftSQL(ctx, question, schema)
	if err != nil {
		return nil, fmt.Errorf("draft sql: %w", err)
	}
	if draft == "" {
		rec.Status = history.StatusNoAnswer
		return &ChatResponse{
			Answer:     llm.NoAnswer(),
			Rows:       []map[string]any{},
			DurationMS: time.Since(started).Milliseconds(),
		}, nil
	}

	finalSQL, err := g.validate(ctx, question, schema, draft, g.resolveLimit(req.Limit))
	if err != nil {
		return nil, err
	}
	rec.SQL = finalSQL
	g.logger.Info("executing statement", "question", question, "sql", finalSQL)

	rows, err := g.executor.Run(ctx, finalSQL)
	if err != nil {
		return nil, err
	}
	rec.RowCount = len(rows)

	resp = &ChatResponse{
		SQL:           finalSQL,
		Rows:          rows,
		RowCount:      len(rows),
		AuditRequired: g.policy.RequiresAudit(finalSQL),
	}

	var total int64
	var hasTotal bool
	includeTotal := req.IncludeTotal == nil || *req.IncludeTotal
	if includeTotal && !g.policy.IsAggregate(finalSQL) {
		if total, hasTotal = g.executor.Count(ctx, finalSQL); hasTotal {
			resp.Total = &total
		}
	}

	if resp.AuditRequired && len(rows) > 0 {
		resp.AuditSample = auditSample(rows[0], g.policy.AuditColumns())
	}
	if g.datasets != nil {
		resp.Dataset = g.datasets.Match(finalSQL)
	}

	answer, cerr := g.llm.ComposeAnswer(ctx, llm.AnswerInput{
		Question:    question,
		SQL:         finalSQL,
		Rows:        rows,
		Total:       total,
		HasTotal:    hasTotal,
		DatasetNote: datasetNote(resp.Dataset),
		HasAudit:    resp.AuditSample != nil,
	})
	if cerr != nil {
		g.logger.Warn("answer composition failed, using fallback", "error", cerr)
		answer = llm.FallbackAnswer(len(rows), total, hasTotal)
	}
	resp.Answer = answer
	resp.DurationMS = time.Since(started).Milliseconds()
	return resp, nil
}

// validate runs filter and policy over a draft, re-prompting the model at
// most once when provenance columns are missing. The statement never
// reaches the executor unless this returns nil.
func (g *Gateway) validate(ctx context.Context, question, schema, draft string, limit int) (string, error) {
	clean, err := guard.Sanitize(draft)
	if err != nil {
		return "", err
	}
	finalSQL, err := g.policy.ApplyWithLimit(clean, limit)
	if err == nil {
		return finalSQL, nil
	}
	v := guard.AsViolation(err)
	if v == nil || v.Code != guard.CodeAuditColumnsMissing {
		return "", err
	}

	g.logger.Info("statement missing provenance columns, re-prompting once",
		"missing", v.Columns)
	redraft, rerr := g.llm.RedraftSQL(ctx, question, schema, finalSQL, v.Columns)
	if rerr != nil {
		return "", fmt.Errorf("redraft sql: %w", rerr)
	}
	if redraft == "" {
		return "", err
	}

	clean, serr := guard.Sanitize(redraft)
	if serr != nil {
		return "", serr
	}
	return g.policy.ApplyWithLimit(clean, limit)
}

func (g *Gateway) resolveLimit(requested int) int {
	if requested <= 0 {
		return g.defaultLimit
	}
	if requested > g.maxLimit {
		return g.maxLimit
	}
	return requested
}

// record writes the history entry outside the request context so a timed
// out request still gets logged.
func (g *Gateway) record(e history.Entry) {
	if g.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.history.Record(ctx, e); err != nil {
		g.logger.Warn("failed to record query history", "error", err)
	}
}

// ClearCache drops the memoized schema description.
func (g *Gateway) ClearCache() {
	g.cache.Invalidate()
	g.logger.Info("schema cache invalidated")
}

// History returns recent query log entries; an empty slice when the log is
// disabled.
func (g *Gateway) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if g.history == nil {
		return []history.Entry{}, nil
	}
	entries, err := g.history.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return entries, nil
}

// Health reports warehouse connectivity, model client configuration and
// schema cache state.
type Health struct {
	Status      string          `json:"status"`
	Warehouse   WarehouseHealth `json:"warehouse"`
	LLM         LLMHealth       `json:"llm"`
	SchemaCache catalog.Stats   `json:"schema_cache"`
}

// WarehouseHealth is the warehouse section of a health report.
type WarehouseHealth struct {
	Adapter   string `json:"adapter"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// LLMHealth is the model client section of a health report.
type LLMHealth struct {
	Configured bool `json:"configured"`
}

// Health pings the warehouse and snapshots the cache.
func (g *Gateway) Health(ctx context.Context) Health {
	h := Health{
		Status:      "ok",
		Warehouse:   WarehouseHealth{Adapter: g.warehouse, Connected: true},
		LLM:         LLMHealth{Configured: g.llm.Configured()},
		SchemaCache: g.cache.Stats(),
	}
	if err := g.executor.Ping(ctx); err != nil {
		h.Status = "degraded"
		h.Warehouse.Connected = false
		h.Warehouse.Error = maskSecrets(err.Error())
	}
	return h
}

// auditSample extracts the provenance columns from a result row. Missing
// keys are skipped; the policy already guaranteed their projection, so a
// miss means the model aliased a column and the sample is partial.
func auditSample(row map[string]any, columns []string) map[string]any {
	sample := make(map[string]any, len(columns))
	for _, col := range columns {
		if v, ok := row[col]; ok {
			sample[col] = v
		}
	}
	if len(sample) == 0 {
		return nil
	}
	return sample
}

func datasetNote(m *dataset.Meta) string {
	if m == nil {
		return ""
	}
	return m.Note()
}

var tokenPattern = regexp.MustCompile(`(?i)(motherduck_token=)[^&\s'"]+`)

// maskSecrets keeps connection credentials out of anything user-facing.
func maskSecrets(s string) string {
	return tokenPattern.ReplaceAllString(s, "${1}***")
}
