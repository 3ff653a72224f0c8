// internal/oracle/prompt.go
package oracle

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

const systemPrompt = `You write short, professional answers to job application form questions on behalf of a candidate.
Rules:
- Answer each question directly and concisely (1-3 sentences unless the question demands more).
- Never invent specific employers, dates, or credentials not given in the context.
- Respond ONLY with a JSON array of strings, one answer per question, in the same order.`

// buildPrompt renders one batch of same-category questions into a single
// user prompt. Questions are numbered so the model keeps order; the answer
// contract (JSON array, index-aligned) is restated at the end.
func buildPrompt(req schemas.OracleRequest) string {
	var b strings.Builder

	b.WriteString("Context for the application:\n")
	writeContextLine(&b, "Company", req.Context.Company)
	writeContextLine(&b, "Role", req.Context.Position)
	writeContextLine(&b, "Job description", req.Context.Job)
	writeContextLine(&b, "Industry", req.Context.Industry)

	fmt.Fprintf(&b, "\nQuestion category: %s\n\nQuestions:\n", req.Category)
	for i, q := range req.Questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}

	fmt.Fprintf(&b, "\nReturn a JSON array of exactly %d strings, answer i matching question i.\n", len(req.Questions))
	return b.String()
}

func writeContextLine(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, clipPrompt(value, 400))
}

func clipPrompt(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
