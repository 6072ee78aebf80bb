package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kati2710/BDC/internal/history"
)

func sampleRows() []map[string]any {
	return []map[string]any{
		{"razao_social": "ACME LTDA", "uf": "SP", "capital": int64(150000)},
		{"razao_social": "BETA, COMERCIO S.A.", "uf": "RJ", "capital": nil},
	}
}

func TestColumnsOfSortsUnion(t *testing.T) {
	rows := []map[string]any{
		{"b": 1, "a": 2},
		{"c": 3, "a": 4},
	}
	assert.Equal(t, []string{"a", "b", "c"}, columnsOf(rows))
	assert.Empty(t, columnsOf(nil))
}

func TestRenderTable(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderRows(buf, sampleRows(), "table"))

	out := buf.String()
	assert.Contains(t, out, "RAZAO_SOCIAL")
	assert.Contains(t, out, "ACME LTDA")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
}

func TestRenderTableEmpty(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderRows(buf, nil, "table"))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestRenderCSV(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderRows(buf, sampleRows(), "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "capital,razao_social,uf", lines[0])
	assert.Equal(t, "150000,ACME LTDA,SP", lines[1])
	// Values with commas are quoted.
	assert.Equal(t, `NULL,"BETA, COMERCIO S.A.",RJ`, lines[2])
}

func TestRenderMarkdown(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderRows(buf, sampleRows(), "md"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| capital | razao_social | uf |", lines[0])
	assert.Equal(t, "| --- | --- | --- |", lines[1])
	assert.Contains(t, lines[2], "ACME LTDA")
}

func TestRenderJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderRows(buf, sampleRows(), "json"))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "ACME LTDA", decoded[0]["razao_social"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklm", 10))
	// Rune-aware: accented questions never split mid-character.
	assert.Equal(t, "públicaçõ...", truncate("públicaçõesdodiáriooficial", 12))
}

func TestRenderHistoryTable(t *testing.T) {
	asked := time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC)
	entries := []history.Entry{
		{
			AskedAt:    asked,
			Question:   "quantas empresas ativas?",
			Status:     history.StatusOK,
			RowCount:   1,
			DurationMS: 2300,
		},
		{
			AskedAt:  asked.Add(-time.Hour),
			Question: "pergunta sem resposta",
			Status:   history.StatusNoAnswer,
		},
	}

	buf := new(bytes.Buffer)
	require.NoError(t, renderHistory(buf, entries, "table"))

	out := buf.String()
	assert.Contains(t, out, "quantas empresas ativas?")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "no_answer")
	assert.Contains(t, out, "2.3s")
	assert.Contains(t, out, "(2 entries)")
}

func TestRenderHistoryEmpty(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderHistory(buf, nil, "table"))
	assert.Equal(t, "(0 entries)\n", buf.String())
}

func TestRenderHistoryJSON(t *testing.T) {
	entries := []history.Entry{{Question: "teste", Status: history.StatusError, Error: "query failed"}}

	buf := new(bytes.Buffer)
	require.NoError(t, renderHistory(buf, entries, "json"))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "teste", decoded[0]["question"])
	assert.Equal(t, "query failed", decoded[0]["error"])
}
