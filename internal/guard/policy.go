package guard

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PolicyConfig declares the rewrite and enforcement rules for drafted SQL.
type PolicyConfig struct {
	// Aliases maps canonical table names to the physical names of the
	// current load, e.g. bdc.main.empresas -> bdc.main.empresas_2025_07.
	Aliases map[string]string
	// DefaultLimit is appended to non-aggregate statements that carry no
	// LIMIT of their own. Zero disables the injection.
	DefaultLimit int
	// AuditPrefix marks regulated sources; statements referencing tables
	// under it must project every column in AuditColumns.
	AuditPrefix  string
	AuditColumns []string
}

// Policy applies alias rewriting, limit injection and provenance checks to
// sanitized statements. All matching is textual, whole-word and ignores
// quoted regions; it never parses SQL.
type Policy struct {
	cfg      PolicyConfig
	aliases  []aliasRule
	auditRef *regexp.Regexp
	columns  []columnRule
}

type aliasRule struct {
	canonical string
	physical  string
	pattern   *regexp.Regexp
}

type columnRule struct {
	name    string
	pattern *regexp.Regexp
}

var (
	limitPattern   = regexp.MustCompile(`(?i)\blimit\b`)
	aggFnPattern   = regexp.MustCompile(`(?i)\b(count|sum|avg|min|max)\s*\(`)
	groupByPattern = regexp.MustCompile(`(?i)\bgroup\s+by\b`)
)

// NewPolicy compiles the rule set. Longer canonical names are rewritten
// first so overlapping aliases resolve deterministically.
func NewPolicy(cfg PolicyConfig) *Policy {
	p := &Policy{cfg: cfg}

	canonicals := make([]string, 0, len(cfg.Aliases))
	for name := range cfg.Aliases {
		canonicals = append(canonicals, name)
	}
	sort.Slice(canonicals, func(i, j int) bool {
		if len(canonicals[i]) != len(canonicals[j]) {
			return len(canonicals[i]) > len(canonicals[j])
		}
		return canonicals[i] < canonicals[j]
	})
	for _, name := range canonicals {
		p.aliases = append(p.aliases, aliasRule{
			canonical: name,
			physical:  cfg.Aliases[name],
			pattern:   wordPattern(name),
		})
	}

	if cfg.AuditPrefix != "" {
		p.auditRef = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(cfg.AuditPrefix) + `[a-z_][a-z0-9_]*`)
	}
	for _, col := range cfg.AuditColumns {
		p.columns = append(p.columns, columnRule{name: col, pattern: wordPattern(col)})
	}
	return p
}

func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
}

// Apply runs the full policy pass with the configured default limit.
func (p *Policy) Apply(sql string) (string, error) {
	return p.ApplyWithLimit(sql, p.cfg.DefaultLimit)
}

// ApplyWithLimit rewrites aliases, injects the given limit and checks
// provenance columns. The returned statement is fully rewritten even when
// the provenance check fails, so callers can feed it back to the model.
func (p *Policy) ApplyWithLimit(sql string, limit int) (string, error) {
	sql = p.Rewrite(sql)
	sql = p.ensureLimit(sql, limit)

	if p.RequiresAudit(sql) {
		if missing := p.MissingAuditColumns(sql); len(missing) > 0 {
			return sql, &Violation{Code: CodeAuditColumnsMissing, Columns: missing}
		}
	}
	return sql, nil
}

// Rewrite replaces canonical table names with their physical counterparts.
// Matches are whole words outside quotes, so bdc.main.empresas_archive is
// untouched by an alias for bdc.main.empresas, and re-running the rewrite
// on its own output changes nothing.
func (p *Policy) Rewrite(sql string) string {
	for _, rule := range p.aliases {
		masked := MaskQuoted(sql)
		locs := rule.pattern.FindAllStringIndex(masked, -1)
		if len(locs) == 0 {
			continue
		}
		var b strings.Builder
		last := 0
		for _, loc := range locs {
			b.WriteString(sql[last:loc[0]])
			b.WriteString(rule.physical)
			last = loc[1]
		}
		b.WriteString(sql[last:])
		sql = b.String()
	}
	return sql
}

// ensureLimit appends LIMIT n unless the statement already has one or
// looks aggregate-shaped.
func (p *Policy) ensureLimit(sql string, limit int) string {
	if limit <= 0 {
		return sql
	}
	masked := MaskQuoted(sql)
	if limitPattern.MatchString(masked) {
		return sql
	}
	if aggFnPattern.MatchString(masked) || groupByPattern.MatchString(masked) {
		return sql
	}
	return sql + " LIMIT " + strconv.Itoa(limit)
}

// IsAggregate reports whether the statement reads as a whole-table
// aggregation. Detection scans the whole statement outside quoted regions,
// subqueries included; a statement aggregating only in a subquery still
// counts as aggregate.
func (p *Policy) IsAggregate(sql string) bool {
	masked := MaskQuoted(sql)
	return aggFnPattern.MatchString(masked) || groupByPattern.MatchString(masked)
}

// RequiresAudit reports whether the statement references any table under
// the regulated prefix.
func (p *Policy) RequiresAudit(sql string) bool {
	if p.auditRef == nil {
		return false
	}
	return p.auditRef.MatchString(MaskQuoted(sql))
}

// AuditColumns returns the configured provenance column names.
func (p *Policy) AuditColumns() []string {
	out := make([]string, len(p.cfg.AuditColumns))
	copy(out, p.cfg.AuditColumns)
	return out
}

// MissingAuditColumns returns the provenance columns that do not appear
// as whole words in the statement, in configured order.
func (p *Policy) MissingAuditColumns(sql string) []string {
	masked := MaskQuoted(sql)
	var missing []string
	for _, col := range p.columns {
		if !col.pattern.MatchString(masked) {
			missing = append(missing, col.name)
		}
	}
	return missing
}
