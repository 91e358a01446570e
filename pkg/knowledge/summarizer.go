package knowledge

import (
	"context"
	"fmt"

	"ktassist/internal/util"
	"ktassist/pkg/ai"
	"ktassist/pkg/domain"
)

// SummaryInputLimit is the number of characters of a document sent for summary.
const SummaryInputLimit = 10000

const summaryTemplate = `Please provide a concise summary of the following project document in 5-10 lines maximum.
Focus on:
1. Purpose of the document
2. Key processes
3. Important contacts / ownership
4. Key decisions

Keep the summary brief and to the point. Each point should be 1-2 lines.

Document Content:
%s`

// Summarizer produces short handover summaries of document text.
type Summarizer struct {
	gen ai.TextGenerator
}

func NewSummarizer(gen ai.TextGenerator) *Summarizer {
	return &Summarizer{gen: gen}
}

// Prompt returns the exact text sent to the generator for text.
func (s *Summarizer) Prompt(text string) string {
	return fmt.Sprintf(summaryTemplate, truncateRunes(text, SummaryInputLimit))
}

// Summarize never fails: empty text yields domain.SummaryNoText without a
// generator call, and generator errors are folded into the returned string.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	if text == "" {
		return domain.SummaryNoText
	}
	out, err := s.gen.GenerateText(ctx, "", s.Prompt(text))
	if err != nil {
		util.LoggerFromContext(ctx).Warn("summary generation failed", "err", err)
		return "Error generating summary: " + err.Error()
	}
	return out
}
