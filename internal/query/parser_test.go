package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type stubModel struct {
	response string
	err      error
}

func (s *stubModel) Invoke(context.Context, string) (string, error) {
	return s.response, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse_NilModelFallsBack(t *testing.T) {
	p := NewParser(nil, testLogger())
	q := p.Parse(context.Background(), "notes about kubernetes networking")
	if q.HasStructured() {
		t.Errorf("fallback query should carry no structured criteria: %+v", q)
	}
	if len(q.Keywords) != 3 {
		t.Errorf("keywords = %v, want [notes kubernetes networking]", q.Keywords)
	}
}

func TestParse_EmptyQuestion(t *testing.T) {
	p := NewParser(nil, testLogger())
	q := p.Parse(context.Background(), "   ")
	if q.Raw != "" || q.HasStructured() || len(q.Keywords) != 0 {
		t.Errorf("empty question should yield empty query, got %+v", q)
	}
}

func TestParse_ModelExtraction(t *testing.T) {
	m := &stubModel{response: `{"dates": ["2025-01"], "tags": ["Stripe", "stripe"], "filenames": ["billing.md"], "keywords": ["invoice"]}`}
	p := NewParser(m, testLogger())

	q := p.Parse(context.Background(), "stripe invoices in january 2025")
	if len(q.Dates) != 1 || q.Dates[0].From != "2025-01-01" || q.Dates[0].To != "2025-01-31" {
		t.Errorf("dates = %v", q.Dates)
	}
	// Duplicate tags collapse case-insensitively.
	if len(q.Tags) != 1 || q.Tags[0] != "stripe" {
		t.Errorf("tags = %v, want [stripe]", q.Tags)
	}
	if len(q.Filenames) != 1 || q.Filenames[0] != "billing.md" {
		t.Errorf("filenames = %v", q.Filenames)
	}
	if len(q.Keywords) != 1 || q.Keywords[0] != "invoice" {
		t.Errorf("keywords = %v", q.Keywords)
	}
}

func TestParse_ModelErrorFallsBack(t *testing.T) {
	m := &stubModel{err: errors.New("connection refused")}
	p := NewParser(m, testLogger())

	q := p.Parse(context.Background(), "find docker compose setup")
	if q.HasStructured() {
		t.Errorf("expected fallback query, got %+v", q)
	}
	if len(q.Keywords) == 0 {
		t.Error("fallback query must carry keywords")
	}
}

func TestParse_GarbageOutputFallsBack(t *testing.T) {
	m := &stubModel{response: "I think the answer might involve several files..."}
	p := NewParser(m, testLogger())

	q := p.Parse(context.Background(), "postgres tuning notes")
	if len(q.Keywords) != 3 {
		t.Errorf("keywords = %v, want question-derived fallback", q.Keywords)
	}
}

func TestParse_FencedJSONAccepted(t *testing.T) {
	m := &stubModel{response: "```json\n{\"dates\": [], \"tags\": [\"go\"], \"filenames\": [], \"keywords\": []}\n```"}
	p := NewParser(m, testLogger())

	q := p.Parse(context.Background(), "go notes")
	if len(q.Tags) != 1 || q.Tags[0] != "go" {
		t.Errorf("tags = %v, want [go]", q.Tags)
	}
}

func TestParse_InvalidDateExpressionSkipped(t *testing.T) {
	m := &stubModel{response: `{"dates": ["last week", "2025-02"], "tags": [], "filenames": [], "keywords": ["meeting"]}`}
	p := NewParser(m, testLogger())

	q := p.Parse(context.Background(), "meetings around february")
	if len(q.Dates) != 1 || q.Dates[0].From != "2025-02-01" {
		t.Errorf("dates = %v, want only the valid expression", q.Dates)
	}
}

func TestParse_EmptyExtractionBackfillsKeywords(t *testing.T) {
	m := &stubModel{response: `{"dates": [], "tags": [], "filenames": [], "keywords": []}`}
	p := NewParser(m, testLogger())

	q := p.Parse(context.Background(), "terraform state locking")
	if len(q.Keywords) != 3 {
		t.Errorf("keywords = %v, want question-derived backfill", q.Keywords)
	}
}
