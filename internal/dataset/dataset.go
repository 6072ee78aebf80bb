// Package dataset maps executed statements back to the public dataset they
// draw from, so responses can cite source, period and origin.
package dataset

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Kati2710/BDC/internal/guard"
)

//go:embed datasets.yaml
var embeddedYAML []byte

// Meta describes one dataset. Table is the qualified name its statements
// reference; the remaining fields are citation material.
type Meta struct {
	Table       string `yaml:"table" json:"table"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Period      string `yaml:"period" json:"period,omitempty"`
	OriginURL   string `yaml:"origin_url" json:"origin_url,omitempty"`
}

// Note renders the descriptor as a single line for prompts and logs.
func (m *Meta) Note() string {
	var b strings.Builder
	b.WriteString(m.Name)
	if m.Description != "" {
		b.WriteString(": ")
		b.WriteString(m.Description)
	}
	if m.Period != "" {
		b.WriteString(". Período: ")
		b.WriteString(m.Period)
	}
	if m.OriginURL != "" {
		b.WriteString(". Fonte: ")
		b.WriteString(m.OriginURL)
	}
	return b.String()
}

type entry struct {
	meta    Meta
	pattern *regexp.Regexp
}

// Catalog holds the known descriptors in declaration order.
type Catalog struct {
	entries []entry
}

type catalogFile struct {
	Datasets []Meta `yaml:"datasets"`
}

// New builds the catalog from the embedded descriptors plus any extra
// entries from configuration. An extra entry with a table already present
// replaces the embedded one; new tables are appended.
func New(extra []Meta) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(embeddedYAML, &file); err != nil {
		return nil, fmt.Errorf("parse embedded datasets: %w", err)
	}

	metas := file.Datasets
	for _, add := range extra {
		replaced := false
		for i := range metas {
			if strings.EqualFold(metas[i].Table, add.Table) {
				metas[i] = add
				replaced = true
				break
			}
		}
		if !replaced {
			metas = append(metas, add)
		}
	}

	c := &Catalog{entries: make([]entry, 0, len(metas))}
	for _, m := range metas {
		if m.Table == "" {
			return nil, fmt.Errorf("dataset %q has no table", m.Name)
		}
		// The trailing (\b|_) lets a partitioned physical name such as
		// empresas_2025_07 match its base entry.
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(m.Table) + `(\b|_)`)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", m.Table, err)
		}
		c.entries = append(c.entries, entry{meta: m, pattern: pattern})
	}
	return c, nil
}

// Match returns the first descriptor whose table the statement references
// outside quoted regions, or nil when none does.
func (c *Catalog) Match(sql string) *Meta {
	masked := guard.MaskQuoted(sql)
	for i := range c.entries {
		if c.entries[i].pattern.MatchString(masked) {
			m := c.entries[i].meta
			return &m
		}
	}
	return nil
}
