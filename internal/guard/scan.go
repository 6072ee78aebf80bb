package guard

import "strings"

// MaskQuoted returns a copy of s with every quoted region, quotes included,
// replaced by spaces. Single-quoted literals and double-quoted identifiers
// are recognized, with doubled quotes (” or "") as escapes. The result has
// the same length as s, so match positions found on the mask are valid
// positions in the original string.
func MaskQuoted(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	const (
		plain = iota
		single
		double
	)
	state := plain

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case plain:
			switch c {
			case '\'':
				state = single
				b.WriteByte(' ')
			case '"':
				state = double
				b.WriteByte(' ')
			default:
				b.WriteByte(c)
			}
		case single:
			if c == '\'' {
				// '' is an escaped quote inside the literal
				if i+1 < len(s) && s[i+1] == '\'' {
					b.WriteString("  ")
					i++
					continue
				}
				state = plain
			}
			b.WriteByte(' ')
		case double:
			if c == '"' {
				if i+1 < len(s) && s[i+1] == '"' {
					b.WriteString("  ")
					i++
					continue
				}
				state = plain
			}
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// collapseSpaces rewrites s with runs of whitespace outside quoted regions
// collapsed to a single space; leading and trailing runs are dropped.
// Whitespace inside quotes is preserved so literals like 'São Paulo' and
// identifiers like "razão social" survive.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	const (
		plain = iota
		single
		double
	)
	state := plain
	pendingSpace := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if state == plain {
			if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
				pendingSpace = true
				continue
			}
			if pendingSpace {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				pendingSpace = false
			}
			switch c {
			case '\'':
				state = single
			case '"':
				state = double
			}
			b.WriteByte(c)
			continue
		}

		// Inside quotes: copy verbatim, tracking the closing quote.
		b.WriteByte(c)
		if state == single && c == '\'' {
			if i+1 < len(s) && s[i+1] == '\'' {
				b.WriteByte('\'')
				i++
				continue
			}
			state = plain
		} else if state == double && c == '"' {
			if i+1 < len(s) && s[i+1] == '"' {
				b.WriteByte('"')
				i++
				continue
			}
			state = plain
		}
	}
	return b.String()
}
