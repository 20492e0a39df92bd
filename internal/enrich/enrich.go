// Package enrich regenerates per-document frontmatter with the model
// collaborator and rewrites documents atomically, many in parallel.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/extract"
	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/storage"
)

// Status classifies one document's enrichment outcome.
type Status string

const (
	StatusEnriched  Status = "enriched"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
)

// Outcome is the per-document result of an enrichment run.
type Outcome struct {
	Path   string `json:"path"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// TagPolicy controls how generated tags merge with existing ones on a
// force update.
type TagPolicy string

const (
	TagReplace TagPolicy = "replace"
	TagAppend  TagPolicy = "append"
	TagKeep    TagPolicy = "keep"
)

// Options configures one enrichment run.
type Options struct {
	// ForceUpdate regenerates frontmatter even when a document already
	// has one. Without it such documents are skipped unchanged.
	ForceUpdate bool
	// MaxFiles caps how many documents are enqueued (0 = no cap).
	// In-flight work always finishes.
	MaxFiles int
	// Workers bounds the pool; 1 means fully sequential.
	Workers int
	// TagPolicy applies on force updates when a document already has tags.
	TagPolicy TagPolicy
}

// Pipeline runs enrichment batches. Each worker owns its document
// end-to-end; the only shared mutable state is the progress counter.
type Pipeline struct {
	store  storage.Provider
	model  llm.Invoker
	logger *slog.Logger

	processed atomic.Int64
}

// NewPipeline creates a Pipeline.
func NewPipeline(store storage.Provider, model llm.Invoker, logger *slog.Logger) *Pipeline {
	return &Pipeline{store: store, model: model, logger: logger}
}

// Processed reports how many documents the current run has finished.
func (p *Pipeline) Processed() int64 {
	return p.processed.Load()
}

// Run enriches every path with a bounded worker pool and returns exactly
// one outcome per enqueued path. Outcomes complete in any order; one
// document's failure never aborts the batch.
func (p *Pipeline) Run(ctx context.Context, paths []string, opts Options) []Outcome {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.TagPolicy == "" {
		opts.TagPolicy = TagReplace
	}
	if opts.MaxFiles > 0 && len(paths) > opts.MaxFiles {
		paths = paths[:opts.MaxFiles]
	}

	p.processed.Store(0)
	outcomes := make([]Outcome, len(paths))
	total := len(paths)

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			outcomes[i] = p.enrichOne(ctx, path, opts)
			done := p.processed.Add(1)
			p.logger.Debug("enrich: document done",
				slog.String("path", path),
				slog.String("status", string(outcomes[i].Status)),
				slog.Int64("done", done),
				slog.Int("total", total))
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in outcomes

	return outcomes
}

// enrichOne reads, generates, merges, and rewrites a single document.
func (p *Pipeline) enrichOne(ctx context.Context, path string, opts Options) Outcome {
	data, err := p.store.Read(path)
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Reason: fmt.Sprintf("read: %v", err)}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Outcome{Path: path, Status: StatusUnchanged, Reason: "empty file"}
	}

	fm, rawFM, body := extract.SplitFrontmatter(data)
	if len(fm) > 0 && !opts.ForceUpdate {
		return Outcome{Path: path, Status: StatusUnchanged, Reason: "existing frontmatter"}
	}

	created, _, statErr := p.store.Stat(path)
	createdDate := ""
	if statErr == nil {
		createdDate = created.Format("2006-01-02")
	}

	gen, err := p.generate(ctx, body)
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Reason: fmt.Sprintf("generate: %v", err)}
	}

	fmBlock, err := mergeFrontmatter(rawFM, gen, createdDate, opts.ForceUpdate, opts.TagPolicy)
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Reason: fmt.Sprintf("merge: %v", err)}
	}

	newContent := fmt.Sprintf("---\n%s---\n\n%s", fmBlock, body)
	if err := p.store.Write(path, []byte(newContent)); err != nil {
		return Outcome{Path: path, Status: StatusFailed, Reason: fmt.Sprintf("write: %v", err)}
	}

	return Outcome{Path: path, Status: StatusEnriched}
}

const generatePromptFmt = `Analyze the following document content and generate metadata for it.

Document content:
%s

Generate a JSON object with these exact fields:
- "title": a concise, descriptive title (max 60 chars)
- "description": one or two sentences summarizing the content
- "tags": an array of 3-8 relevant lowercase, hyphenated tags

Guidelines:
- Make the title specific and informative.
- Use specific tags that categorize the content; avoid generic tags like
  "note" or "document".

Return ONLY the JSON object.`

// generated is the shape the model must emit for one document.
type generated struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// maxGenerateContent bounds the content sent to the model.
const maxGenerateContent = 2000

func (p *Pipeline) generate(ctx context.Context, body string) (generated, error) {
	if p.model == nil {
		return generated{}, apperr.ErrUnavailable
	}

	content := strings.TrimSpace(body)
	if runes := []rune(content); len(runes) > maxGenerateContent {
		content = string(runes[:maxGenerateContent]) + "..."
	}

	raw, err := p.model.Invoke(ctx, fmt.Sprintf(generatePromptFmt, content))
	if err != nil {
		return generated{}, err
	}

	var g generated
	if err := json.Unmarshal([]byte(extractJSON(raw)), &g); err != nil {
		return generated{}, fmt.Errorf("%w: %v", apperr.ErrBadOutput, err)
	}
	if g.Title == "" && g.Description == "" && len(g.Tags) == 0 {
		return generated{}, fmt.Errorf("%w: empty extraction", apperr.ErrBadOutput)
	}
	return g, nil
}

// extractJSON strips code fences and surrounding prose from model output.
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
