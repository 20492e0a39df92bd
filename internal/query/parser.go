package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ansuz/internal/llm"
)

// Parser converts a free-text question into a Structured query using the
// model collaborator, with a deterministic keyword fallback.
type Parser struct {
	model  llm.Invoker
	logger *slog.Logger
}

// NewParser creates a Parser. model may be nil, in which case every parse
// takes the fallback path.
func NewParser(model llm.Invoker, logger *slog.Logger) *Parser {
	return &Parser{model: model, logger: logger}
}

const parsePromptFmt = `Analyze this question and extract structured search criteria as JSON: %q

Rules:
1. "dates": date expressions ONLY when the question names a month, year,
   quarter, or specific date. Use "YYYY", "YYYY-MM", "YYYY-MM-DD", or
   "YYYY-MM-DD..YYYY-MM-DD". Otherwise [].
2. "tags": topic words mentioned in the question plus close synonyms,
   lowercase.
3. "filenames": file names or path fragments the question refers to.
4. "keywords": remaining content words useful for a text scan.

Examples:
- "jan 2023" -> {"dates": ["2023-01"], "tags": [], "filenames": [], "keywords": []}
- "what is kubernetes?" -> {"dates": [], "tags": ["kubernetes", "k8s", "containers"], "filenames": [], "keywords": ["kubernetes"]}
- "notes about stripe billing" -> {"dates": [], "tags": ["stripe", "billing", "payments"], "filenames": [], "keywords": ["stripe", "billing"]}

Return ONLY the JSON object.`

// modelExtraction is the fixed machine-readable shape the model must emit.
type modelExtraction struct {
	Dates     []string `json:"dates"`
	Tags      []string `json:"tags"`
	Filenames []string `json:"filenames"`
	Keywords  []string `json:"keywords"`
}

// Parse never fails: any model error or unparsable output degrades to a
// keywords-only query derived from the question itself. An empty question
// yields a query with no criteria at all.
func (p *Parser) Parse(ctx context.Context, question string) Structured {
	question = strings.TrimSpace(question)
	if question == "" {
		return Structured{}
	}

	if p.model == nil {
		return p.fallback(question)
	}

	raw, err := p.model.Invoke(ctx, fmt.Sprintf(parsePromptFmt, question))
	if err != nil {
		p.logger.Warn("query: model parse failed, using keyword fallback",
			slog.String("error", err.Error()))
		return p.fallback(question)
	}

	var ext modelExtraction
	if err := json.Unmarshal([]byte(extractJSON(raw)), &ext); err != nil {
		p.logger.Warn("query: undecodable model output, using keyword fallback",
			slog.String("error", err.Error()))
		return p.fallback(question)
	}

	q := Structured{Raw: question}
	for _, expr := range ext.Dates {
		r, err := ExpandDateExpr(expr)
		if err != nil {
			p.logger.Debug("query: skipping date expression", slog.String("expr", expr))
			continue
		}
		q.Dates = append(q.Dates, r)
	}
	q.Tags = cleanTerms(ext.Tags)
	q.Filenames = cleanTerms(ext.Filenames)
	q.Keywords = cleanTerms(ext.Keywords)

	// A structurally empty extraction still needs something to search on.
	if !q.HasStructured() && len(q.Keywords) == 0 {
		q.Keywords = Keywords(question)
	}
	return q
}

func (p *Parser) fallback(question string) Structured {
	return Structured{Raw: question, Keywords: Keywords(question)}
}

// extractJSON strips code fences and surrounding prose, returning the
// outermost {...} block (models like to decorate their JSON).
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func cleanTerms(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
