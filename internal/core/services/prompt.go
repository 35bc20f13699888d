package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// AbstentionMarker is the token the model is told to emit when the context
// does not answer the question.
const AbstentionMarker = domain.AbstentionMarker

// BuildAnswerPrompt renders the retrieved evidence and the question.
// Blocks are numbered from 1 in evidence order.
func BuildAnswerPrompt(question string, evidence []domain.Evidence) string {
	var sb strings.Builder

	sb.WriteString("Context:\n\n")
	for i, e := range evidence {
		fmt.Fprintf(&sb, "[%d] (%s)\n%s\n\n", i+1, e.Chunk.Provenance(), strings.TrimSpace(e.Chunk.Text))
	}

	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\nAnswer:")

	return sb.String()
}

// NormaliseAnswer maps any abstention to the fixed abstention text.
// Returns the final answer and whether it is an abstention.
func NormaliseAnswer(raw string) (string, bool) {
	answer := strings.TrimSpace(raw)
	if answer == "" ||
		strings.Contains(answer, AbstentionMarker) ||
		strings.EqualFold(strings.TrimSuffix(answer, "."), strings.TrimSuffix(domain.AbstentionAnswer, ".")) {
		return domain.AbstentionAnswer, true
	}
	return answer, false
}
