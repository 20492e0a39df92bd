// Package answer synthesizes a natural-language answer from retrieved
// documents and the original question.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/search"
)

// maxContextDocs bounds the prompt so it stays within model limits.
const maxContextDocs = 20

// Synthesizer builds a context prompt from search hits and asks the model
// for a final answer.
type Synthesizer struct {
	db     index.MetadataIndex
	model  llm.Invoker
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(db index.MetadataIndex, model llm.Invoker, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{db: db, model: model, logger: logger}
}

const answerPromptFmt = `You are answering the user's question: %q

The documents below were retrieved from the user's personal notes. Each
entry shows the document path, how it matched (date, tag, filename, or
content), its known dates, and a content preview. Paths like
"2025-01-02.md" describe activities from that date.

Documents:
%s

Based only on these documents, answer the question. Summarize what was
done, planned, or discussed in the relevant period.`

// Answer invokes the model once over the retrieved context. On model
// failure it returns a deterministic degraded response that still lists
// the matched document paths.
func (s *Synthesizer) Answer(ctx context.Context, question string, hits []search.Hit) string {
	if len(hits) == 0 {
		return fmt.Sprintf("No relevant documents found for: %s", question)
	}

	prompt := fmt.Sprintf(answerPromptFmt, question, s.buildContext(hits))

	if s.model != nil {
		text, err := s.model.Invoke(ctx, prompt)
		if err == nil {
			return text
		}
		s.logger.Warn("answer: model call failed, returning degraded answer",
			slog.String("error", err.Error()))
	}

	return s.degraded(question, hits)
}

// buildContext formats up to maxContextDocs hits as prompt context.
func (s *Synthesizer) buildContext(hits []search.Hit) string {
	n := len(hits)
	if n > maxContextDocs {
		n = maxContextDocs
	}

	var b strings.Builder
	for i, h := range hits[:n] {
		fmt.Fprintf(&b, "Document %d (%s): %s\n", i+1, h.Kind(), h.Path)
		rec, err := s.db.Get(h.Path)
		if err != nil {
			s.logger.Warn("answer: record lookup failed", slog.String("path", h.Path), slog.String("error", err.Error()))
			b.WriteString("(no preview available)\n\n")
			continue
		}
		if rec.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", rec.Title)
		}
		if len(rec.Dates) > 0 {
			fmt.Fprintf(&b, "Dates: %s\n", strings.Join(rec.Dates, ", "))
		}
		if len(rec.Tags) > 0 {
			fmt.Fprintf(&b, "Tags: %s\n", strings.Join(rec.Tags, ", "))
		}
		b.WriteString(rec.Preview)
		b.WriteString("\n\n")
	}
	return b.String()
}

// degraded never discards retrieval results on synthesis failure.
func (s *Synthesizer) degraded(question string, hits []search.Hit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d documents for %q, but the model was unavailable to summarize them:\n", len(hits), question)
	for _, h := range hits {
		fmt.Fprintf(&b, "- %s (%s)\n", h.Path, h.Kind())
	}
	return strings.TrimRight(b.String(), "\n")
}
