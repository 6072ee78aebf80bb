package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEmbeddedCatalog(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "canonical reference",
			sql:  "SELECT count(*) FROM bdc.main.empresas",
			want: "Cadastro Nacional da Pessoa Jurídica (CNPJ)",
		},
		{
			name: "partitioned physical name",
			sql:  "SELECT * FROM bdc.main.empresas_2025_07 LIMIT 10",
			want: "Cadastro Nacional da Pessoa Jurídica (CNPJ)",
		},
		{
			name: "case insensitive",
			sql:  "SELECT * FROM BDC.MAIN.SOCIOS LIMIT 5",
			want: "Quadro de Sócios e Administradores (CNPJ)",
		},
		{
			name: "dou publications",
			sql:  "SELECT titulo, fonte_url FROM bdc.dou.publicacoes LIMIT 10",
			want: "Diário Oficial da União",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := c.Match(tt.sql)
			require.NotNil(t, m)
			assert.Equal(t, tt.want, m.Name)
		})
	}
}

func TestMatchMisses(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		sql  string
	}{
		{"no known table", "SELECT 1"},
		{"table name inside literal", "SELECT 'bdc.main.empresas' AS tabela"},
		{"different suffix without separator", "SELECT * FROM bdc.main.empresasx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, c.Match(tt.sql))
		})
	}
}

func TestMatchFirstEntryWins(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	m := c.Match("SELECT * FROM bdc.main.empresas e JOIN bdc.dou.publicacoes p ON e.cnpj = p.cnpj")
	require.NotNil(t, m)
	assert.Equal(t, "bdc.main.empresas", m.Table)
}

func TestNewWithOverrides(t *testing.T) {
	c, err := New([]Meta{
		{Table: "bdc.main.empresas", Name: "CNPJ (espelho local)"},
		{Table: "bdc.main.simples", Name: "Simples Nacional"},
	})
	require.NoError(t, err)

	m := c.Match("SELECT * FROM bdc.main.empresas")
	require.NotNil(t, m)
	assert.Equal(t, "CNPJ (espelho local)", m.Name)

	m = c.Match("SELECT * FROM bdc.main.simples")
	require.NotNil(t, m)
	assert.Equal(t, "Simples Nacional", m.Name)
}

func TestNewRejectsMissingTable(t *testing.T) {
	_, err := New([]Meta{{Name: "sem tabela"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table")
}

func TestNote(t *testing.T) {
	m := &Meta{
		Table:     "bdc.dou.publicacoes",
		Name:      "Diário Oficial da União",
		Period:    "diário",
		OriginURL: "https://www.in.gov.br/leiturajornal",
	}
	assert.Equal(t, "Diário Oficial da União. Período: diário. Fonte: https://www.in.gov.br/leiturajornal", m.Note())

	assert.Equal(t, "CNPJ", (&Meta{Name: "CNPJ"}).Note())
}
