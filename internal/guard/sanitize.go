package guard

import (
	"regexp"
	"strings"
)

// blockedKeywords are rejected as whole words outside quoted regions,
// case-insensitively. They cover writes, DDL and engine administration,
// including the DuckDB extension and secret machinery.
var blockedKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "create", "truncate",
	"merge", "grant", "revoke", "call", "set", "reset", "pragma",
	"attach", "detach", "install", "load", "copy", "import", "export",
	"vacuum", "checkpoint", "secret", "httpfs",
}

// blockedSchemes are rejected anywhere in the raw statement, including
// inside string literals, since remote reads take their URLs from literals.
var blockedSchemes = []string{
	"s3://", "gcs://", "gs://", "az://", "azure://", "r2://",
}

var keywordPatterns = compileKeywords(blockedKeywords)

func compileKeywords(words []string) map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(words))
	for _, w := range words {
		m[w] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return m
}

// Sanitize normalizes a model-drafted statement and rejects anything that
// is not a single read-only SELECT. The returned string has code fences
// removed, outer whitespace collapsed and the trailing semicolon stripped.
// On rejection it returns a *Violation.
func Sanitize(raw string) (string, error) {
	sql := stripFences(raw)
	sql = collapseSpaces(sql)
	sql = strings.TrimSpace(sql)
	if strings.HasSuffix(sql, ";") {
		sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	}

	lower := strings.ToLower(sql)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return "", &Violation{Code: CodeNotSelect, Match: clip(sql, 40)}
	}

	masked := MaskQuoted(sql)

	// A single trailing semicolon was already stripped, so any survivor
	// outside quotes means a second statement is riding along.
	if i := strings.IndexByte(masked, ';'); i >= 0 {
		return "", &Violation{Code: CodeMultipleStatements, Match: ";"}
	}

	for _, marker := range []string{"--", "/*", "*/"} {
		if strings.Contains(masked, marker) {
			return "", &Violation{Code: CodeComment, Match: marker}
		}
	}

	for _, w := range blockedKeywords {
		if loc := keywordPatterns[w].FindStringIndex(masked); loc != nil {
			return "", &Violation{Code: CodeBlockedPattern, Pattern: w, Match: sql[loc[0]:loc[1]]}
		}
	}

	for _, scheme := range blockedSchemes {
		if i := strings.Index(lower, scheme); i >= 0 {
			return "", &Violation{Code: CodeBlockedPattern, Pattern: scheme, Match: sql[i : i+len(scheme)]}
		}
	}

	return sql, nil
}

// stripFences extracts the content of the first ``` fenced block, dropping
// an optional language tag on the opening line. Text without fences passes
// through unchanged.
func stripFences(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	// Skip a language tag such as "sql" on the opening line. Anything else
	// on that line is kept, since models sometimes start the statement there.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		switch strings.ToLower(strings.TrimSpace(rest[:nl])) {
		case "", "sql", "duckdb", "postgres", "postgresql":
			rest = rest[nl+1:]
		}
	} else {
		rest = strings.TrimPrefix(rest, "sql")
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		return rest[:end]
	}
	return rest
}

// clip shortens s for inclusion in error messages and logs.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
