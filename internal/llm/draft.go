package llm

import (
	"context"
	"fmt"
	"strings"
)

// impossibleSentinel is what the model is instructed to reply when the
// question cannot be answered from the visible schema.
const impossibleSentinel = "IMPOSSIBLE"

// DraftSQL asks the model for a single SELECT answering the question over
// the described schema. Returns an empty string with a nil error when the
// model judges the question unanswerable; the caller turns that into a
// friendly response instead of an error.
func (c *Client) DraftSQL(ctx context.Context, question, schemaText string) (string, error) {
	prompt := fmt.Sprintf(`Você é um especialista em SQL do DuckDB. Com base no schema abaixo, escreva uma query SQL que responda à pergunta do usuário.

REGRAS OBRIGATÓRIAS:
1. Use apenas SELECT (ou WITH ... SELECT). NUNCA use INSERT, UPDATE, DELETE, DROP, CREATE, ALTER, TRUNCATE ou qualquer instrução que modifique dados.
2. Use apenas tabelas e colunas que existem no schema fornecido, sempre com o nome qualificado completo (catalogo.schema.tabela).
3. Se não for possível responder com os dados disponíveis, responda exatamente com: IMPOSSIBLE
4. Retorne APENAS o SQL puro, sem explicações, sem blocos de código, sem comentários, sem markdown.
5. Uma única instrução SQL, sem ponto e vírgula no meio.

SCHEMA DO BANCO:
%s

PERGUNTA DO USUÁRIO:
%s

SQL:`, clip(schemaText, 120000), question)

	out, err := c.Chat(ctx, c.cfg.SQLModel, []Message{{Role: "user", Content: prompt}}, 0.1, 2000)
	if err != nil {
		return "", err
	}
	if isImpossible(out) {
		c.logger.Debug("model replied IMPOSSIBLE", "question", clip(question, 120))
		return "", nil
	}
	c.logger.Debug("drafted sql", "first_line", clip(firstLine(out), 160))
	return out, nil
}

// RedraftSQL asks the model to rewrite a statement that violates the
// provenance policy, naming the columns it must project. Same sentinel
// contract as DraftSQL.
func (c *Client) RedraftSQL(ctx context.Context, question, schemaText, previousSQL string, missing []string) (string, error) {
	prompt := fmt.Sprintf(`Você é um especialista em SQL do DuckDB. A query abaixo consulta dados do Diário Oficial da União, mas não projeta as colunas de proveniência obrigatórias. Reescreva-a incluindo no SELECT as colunas que faltam: %s.

PERGUNTA ORIGINAL:
%s

QUERY A CORRIGIR:
%s

REGRAS OBRIGATÓRIAS:
1. Use apenas SELECT (ou WITH ... SELECT). NUNCA use instruções que modifiquem dados.
2. Mantenha os filtros e agrupamentos da query original.
3. As colunas %s devem aparecer como colunas do SELECT, não apenas em filtros.
4. Se não for possível corrigir, responda exatamente com: IMPOSSIBLE
5. Retorne APENAS o SQL puro, sem explicações, sem blocos de código, sem markdown.

SCHEMA DO BANCO:
%s

SQL CORRIGIDO:`,
		strings.Join(missing, ", "), question, previousSQL,
		strings.Join(missing, ", "), clip(schemaText, 100000))

	out, err := c.Chat(ctx, c.cfg.SQLModel, []Message{{Role: "user", Content: prompt}}, 0.1, 2000)
	if err != nil {
		return "", err
	}
	if isImpossible(out) {
		c.logger.Debug("model could not correct statement", "missing", missing)
		return "", nil
	}
	c.logger.Debug("redrafted sql", "first_line", clip(firstLine(out), 160))
	return out, nil
}

// isImpossible matches the sentinel even when the model wraps it in fences
// or stray backticks.
func isImpossible(s string) bool {
	s = strings.Trim(strings.TrimSpace(s), "`\n ")
	s = strings.TrimPrefix(strings.ToUpper(s), "SQL\n")
	return strings.EqualFold(strings.TrimSpace(s), impossibleSentinel)
}

// firstLine returns the first non-empty line, for logging without dumping
// the whole statement.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return s
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
