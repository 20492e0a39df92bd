// Package askservice orchestrates question answering: query parsing,
// retrieval, and answer synthesis. It is shared by the CLI, the HTTP API,
// and the MCP server.
package askservice

import (
	"context"
	"log/slog"

	"github.com/starford/ansuz/internal/answer"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/search"
)

// Service answers questions against the metadata store.
type Service struct {
	db         index.MetadataIndex
	parser     *query.Parser
	engine     *search.Engine
	synth      *answer.Synthesizer
	maxResults int
	logger     *slog.Logger
}

// New creates a Service. model may be nil; parsing and synthesis then use
// their deterministic fallbacks.
func New(db index.MetadataIndex, model llm.Invoker, maxResults int, logger *slog.Logger) *Service {
	return &Service{
		db:         db,
		parser:     query.NewParser(model, logger),
		engine:     search.NewEngine(db, logger),
		synth:      answer.NewSynthesizer(db, model, logger),
		maxResults: maxResults,
		logger:     logger,
	}
}

// Search parses the question and retrieves matching documents without
// synthesizing an answer.
func (s *Service) Search(ctx context.Context, question string) (query.Structured, []search.Hit) {
	q := s.parser.Parse(ctx, question)
	hits := s.engine.Retrieve(q, s.maxResults)
	s.logger.Info("search complete",
		slog.String("question", question),
		slog.Int("structured_criteria", len(q.Dates)+len(q.Tags)+len(q.Filenames)),
		slog.Int("hits", len(hits)))
	return q, hits
}

// Ask answers the question end-to-end and returns the answer text with
// the hits that informed it.
func (s *Service) Ask(ctx context.Context, question string) (string, []search.Hit) {
	_, hits := s.Search(ctx, question)
	return s.synth.Answer(ctx, question, hits), hits
}

// Document returns the stored metadata record for a vault path.
func (s *Service) Document(path string) (*index.Record, error) {
	return s.db.Get(path)
}

// Stats reports how many documents and distinct tags are indexed.
func (s *Service) Stats() (documents, tags int, err error) {
	return s.db.Stats()
}
