package config

// Default configuration values.
const (
	DefaultListenAddr     = ":3000"
	DefaultLimit          = 100
	DefaultMaxLimit       = 500
	DefaultSchemaTTL      = "1h"
	DefaultRequestTimeout = "120s"
	DefaultHistoryPath    = ".bdc/history.db"
	DefaultWarehouseType  = "duckdb"
	DefaultOpenAIBaseURL  = "https://api.openai.com/v1"
	DefaultSQLModel       = "gpt-4o-mini"
	DefaultAnswerModel    = "gpt-4o-mini"
	DefaultAuditPrefix    = "bdc.dou."
)

// DefaultAuditColumns are the provenance columns required on regulated
// sources: origin URL, publication date, line within the source file and
// content hash.
func DefaultAuditColumns() []string {
	return []string{"fonte_url", "fonte_data", "fonte_linha", "fonte_hash"}
}

// defaultMap feeds the confmap provider, the lowest-precedence layer of the
// load chain. Durations are strings here; unmarshal parses them.
func defaultMap() map[string]interface{} {
	return map[string]interface{}{
		"listen_addr":     DefaultListenAddr,
		"cors_origins":    []string{"*"},
		"default_limit":   DefaultLimit,
		"max_limit":       DefaultMaxLimit,
		"schema_ttl":      DefaultSchemaTTL,
		"request_timeout": DefaultRequestTimeout,
		"history_path":    DefaultHistoryPath,
		"verbose":         false,
		"warehouse.type":  DefaultWarehouseType,
		// Secrets default to env references; the loader resolves them and
		// blanks anything left unresolved.
		"warehouse.motherduck_token": "${MOTHERDUCK_TOKEN}",
		"openai.api_key":             "${OPENAI_API_KEY}",
		"openai.base_url":            DefaultOpenAIBaseURL,
		"openai.sql_model":           DefaultSQLModel,
		"openai.answer_model":        DefaultAnswerModel,
		"policy.audit_prefix":        DefaultAuditPrefix,
		"policy.audit_columns":       DefaultAuditColumns(),
	}
}
