package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskQuoted(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no quotes",
			in:   "SELECT 1",
			want: "SELECT 1",
		},
		{
			name: "single quoted literal blanked",
			in:   "WHERE x = 'drop'",
			want: "WHERE x =       ",
		},
		{
			name: "double quoted identifier blanked",
			in:   `SELECT "a b" FROM t`,
			want: `SELECT       FROM t`,
		},
		{
			name: "escaped quote stays inside literal",
			in:   "WHERE x = 'it''s' AND y = 2",
			want: "WHERE x =         AND y = 2",
		},
		{
			name: "unterminated literal blanks the rest",
			in:   "WHERE x = 'open; drop",
			want: "WHERE x =            ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskQuoted(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.in))
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "newlines and tabs become single spaces",
			in:   "SELECT\n\ta,\n\tb\nFROM t",
			want: "SELECT a, b FROM t",
		},
		{
			name: "outer whitespace dropped",
			in:   "  SELECT 1  ",
			want: "SELECT 1",
		},
		{
			name: "literal spacing preserved",
			in:   "WHERE x = 'a  b'   AND y = 'c\td'",
			want: "WHERE x = 'a  b' AND y = 'c\td'",
		},
		{
			name: "quoted identifier spacing preserved",
			in:   `SELECT  "razao  social"  FROM t`,
			want: `SELECT "razao  social" FROM t`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collapseSpaces(tt.in))
		})
	}
}
