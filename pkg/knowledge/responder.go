package knowledge

import (
	"context"
	"fmt"
	"strings"

	"ktassist/internal/util"
	"ktassist/pkg/ai"
	"ktassist/pkg/domain"
)

// ContextContentLimit is the number of characters of each document placed in
// the chat context.
const ContextContentLimit = 20000

const systemInstruction = `You are a Knowledge Transfer (KT) assistant.
Answer the user's question using ONLY the provided document context.
If the information is not available in the uploaded documents, say "` + domain.RefusalAnswer + `"`

const questionTemplate = `Context:
%s

Chat History:
%s

User Question: %s`

// Responder answers questions from the documents of one session.
type Responder struct {
	gen ai.TextGenerator
}

func NewResponder(gen ai.TextGenerator) *Responder {
	return &Responder{gen: gen}
}

// Respond never fails; generator errors are folded into the returned string.
// history must not contain the question being answered.
func (r *Responder) Respond(ctx context.Context, question string, docs []domain.Document, history []domain.ChatTurn) string {
	out, err := r.gen.GenerateText(ctx, systemInstruction, BuildPrompt(question, docs, history))
	if err != nil {
		util.LoggerFromContext(ctx).Warn("chat generation failed", "err", err)
		return "Error generating response: " + err.Error()
	}
	return out
}

// BuildPrompt assembles the user prompt from context, history and question.
func BuildPrompt(question string, docs []domain.Document, history []domain.ChatTurn) string {
	return fmt.Sprintf(questionTemplate, BuildContext(docs), BuildHistory(history), question)
}

// BuildContext renders every document in the given order with its full
// summary and a bounded prefix of its text.
func BuildContext(docs []domain.Document) string {
	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString("\n--- Document: ")
		sb.WriteString(doc.Filename)
		sb.WriteString(" ---\nSummary: ")
		sb.WriteString(doc.Summary)
		sb.WriteString("\nContent: ")
		sb.WriteString(truncateRunes(doc.Text, ContextContentLimit))
		sb.WriteString("\n")
	}
	return sb.String()
}

// BuildHistory renders turns as "role: content" lines, oldest first.
func BuildHistory(turns []domain.ChatTurn) string {
	if len(turns) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
