package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// previewRowLimit caps how many result rows travel to the model. Enough to
// describe the data, small enough to keep prompts cheap.
const previewRowLimit = 5

// AnswerInput carries everything the composer may mention: the executed
// statement, a preview of its rows and the optional dataset and provenance
// context.
type AnswerInput struct {
	Question    string
	SQL         string
	Rows        []map[string]any
	Total       int64
	HasTotal    bool
	DatasetNote string
	HasAudit    bool
}

// ComposeAnswer asks the model for a short plain-text summary of the result
// in Brazilian Portuguese. The prompt forbids markup and facts absent from
// the preview. Callers fall back to FallbackAnswer when this errors.
func (c *Client) ComposeAnswer(ctx context.Context, in AnswerInput) (string, error) {
	sample := in.Rows
	if len(sample) > previewRowLimit {
		sample = sample[:previewRowLimit]
	}
	previewJSON, err := json.Marshal(sample)
	if err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Você é o assistente da Base de Dados CNPJ. Responda à pergunta do usuário usando SOMENTE os dados abaixo.

REGRAS:
1. Responda em português brasileiro, em no máximo 4 linhas.
2. Texto puro: sem markdown, sem asteriscos, sem blocos de código.
3. Formate números grandes no padrão brasileiro (ex: 1.234.567).
4. Não afirme nada que não esteja nos dados abaixo.
`)
	rule := 5
	if in.HasAudit {
		fmt.Fprintf(&b, "%d. Mencione que os registros trazem rastreabilidade de fonte no Diário Oficial da União.\n", rule)
		rule++
	}
	if in.DatasetNote != "" {
		fmt.Fprintf(&b, "%d. Contexto da base consultada: %s\n", rule, in.DatasetNote)
	}

	fmt.Fprintf(&b, "\nPERGUNTA:\n%s\n\nSQL EXECUTADO:\n%s\n", in.Question, in.SQL)
	if in.HasTotal {
		fmt.Fprintf(&b, "\nTOTAL DE REGISTROS (sem LIMIT): %d\n", in.Total)
	}
	fmt.Fprintf(&b, "\nAMOSTRA DO RESULTADO (%d de %d linhas retornadas):\n%s\n\nRESPOSTA:",
		len(sample), len(in.Rows), clip(string(previewJSON), 4000))

	out, err := c.Chat(ctx, c.cfg.AnswerModel, []Message{{Role: "user", Content: b.String()}}, 0.7, 600)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", errors.New("empty answer from model")
	}
	return out, nil
}

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// FallbackAnswer is the deterministic summary used when the composer model
// is unavailable. Counts use Brazilian digit grouping.
func FallbackAnswer(rowCount int, total int64, hasTotal bool) string {
	if hasTotal {
		return ptBR.Sprintf("Encontrei %d registros no total. Mostrando os primeiros %d.", total, rowCount)
	}
	switch rowCount {
	case 0:
		return "Não encontrei registros para essa consulta."
	case 1:
		return "Encontrei 1 registro."
	default:
		return ptBR.Sprintf("Encontrei %d registros.", rowCount)
	}
}

// NoAnswer is the friendly reply for questions the model marked as
// unanswerable from the visible schema.
func NoAnswer() string {
	return "Não consegui montar uma consulta para essa pergunta com os dados disponíveis. Tente reformular citando empresas, sócios ou publicações do DOU."
}
