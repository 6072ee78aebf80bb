// Package guard validates and rewrites model-drafted SQL before execution.
// It treats statements as text: a conservative filter rejects anything that
// is not a single read-only SELECT, and a policy pass rewrites canonical
// table names, appends row limits and enforces provenance columns. False
// positives are acceptable; false negatives are not.
package guard

import (
	"errors"
	"fmt"
	"strings"
)

// Violation codes, stable across releases. They are surfaced verbatim in
// API error payloads and in the query history.
const (
	CodeNotSelect           = "not_select"
	CodeMultipleStatements  = "multiple_statements"
	CodeComment             = "comment"
	CodeBlockedPattern      = "blocked_pattern"
	CodeAuditColumnsMissing = "audit_columns_missing"
)

// Violation describes why a drafted statement was rejected.
type Violation struct {
	// Code is one of the Code* constants.
	Code string
	// Pattern is the denylist entry that fired, for blocked_pattern.
	Pattern string
	// Match is the offending text as it appeared in the statement.
	Match string
	// Columns lists the missing provenance columns, for audit_columns_missing.
	Columns []string
}

func (v *Violation) Error() string {
	switch v.Code {
	case CodeNotSelect:
		return "statement is not a SELECT"
	case CodeMultipleStatements:
		return "statement contains multiple statements"
	case CodeComment:
		return fmt.Sprintf("statement contains a comment marker %q", v.Match)
	case CodeBlockedPattern:
		return fmt.Sprintf("statement contains blocked pattern %q (matched %q)", v.Pattern, v.Match)
	case CodeAuditColumnsMissing:
		return fmt.Sprintf("statement on a regulated source is missing provenance columns: %s", strings.Join(v.Columns, ", "))
	default:
		return "statement rejected: " + v.Code
	}
}

// AsViolation unwraps err into a *Violation, or nil if err is not one.
func AsViolation(err error) *Violation {
	var v *Violation
	if errors.As(err, &v) {
		return v
	}
	return nil
}
