package answer

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seed(t *testing.T, db *index.DB, path, preview string) {
	t.Helper()
	err := db.Upsert(index.Record{
		Path:        path,
		Title:       "Title " + path,
		Preview:     preview,
		Fingerprint: "fp",
		Tags:        []string{"demo"},
		Dates:       []string{"2025-01-10"},
		IndexedAt:   time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAnswer_NoHits(t *testing.T) {
	db := testutil.TestDB(t)
	s := NewSynthesizer(db, &testutil.StubModel{Response: "should not be called"}, testLogger())

	got := s.Answer(context.Background(), "anything?", nil)
	if !strings.Contains(got, "No relevant documents found") {
		t.Errorf("answer = %q", got)
	}
	if !strings.Contains(got, "anything?") {
		t.Errorf("answer should echo the question: %q", got)
	}
}

func TestAnswer_PromptCarriesContext(t *testing.T) {
	db := testutil.TestDB(t)
	seed(t, db, "daily/2025-01-10.md", "Shipped the billing migration.")
	model := &testutil.StubModel{Response: "You shipped the billing migration."}
	s := NewSynthesizer(db, model, testLogger())

	got := s.Answer(context.Background(), "what did I do in january?", []search.Hit{
		{Path: "daily/2025-01-10.md", Kinds: []search.MatchKind{search.MatchDate}, Score: 1},
	})
	if got != "You shipped the billing migration." {
		t.Errorf("answer = %q", got)
	}
	if len(model.Prompts) != 1 {
		t.Fatalf("model called %d times, want 1", len(model.Prompts))
	}
	prompt := model.Prompts[0]
	for _, want := range []string{"daily/2025-01-10.md", "Shipped the billing migration.", "2025-01-10", "demo"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnswer_DegradedOnModelFailure(t *testing.T) {
	db := testutil.TestDB(t)
	seed(t, db, "a.md", "preview")
	s := NewSynthesizer(db, &testutil.StubModel{Err: apperr.ErrUnavailable}, testLogger())

	got := s.Answer(context.Background(), "question?", []search.Hit{
		{Path: "a.md", Kinds: []search.MatchKind{search.MatchTag}, Score: 1},
	})
	if !strings.Contains(got, "a.md") {
		t.Errorf("degraded answer must list hit paths: %q", got)
	}
	if !strings.Contains(got, "unavailable") {
		t.Errorf("degraded answer = %q", got)
	}
}

func TestAnswer_NilModelDegrades(t *testing.T) {
	db := testutil.TestDB(t)
	seed(t, db, "a.md", "preview")
	s := NewSynthesizer(db, nil, testLogger())

	got := s.Answer(context.Background(), "q", []search.Hit{{Path: "a.md", Score: 1}})
	if !strings.Contains(got, "a.md") {
		t.Errorf("answer = %q", got)
	}
}

func TestAnswer_ContextCapped(t *testing.T) {
	db := testutil.TestDB(t)
	var hits []search.Hit
	for i := 0; i < 30; i++ {
		p := "doc-" + string(rune('a'+i%26)) + ".md"
		hits = append(hits, search.Hit{Path: p, Score: 1})
	}
	seed(t, db, "doc-a.md", "preview")
	model := &testutil.StubModel{Response: "ok"}
	s := NewSynthesizer(db, model, testLogger())

	s.Answer(context.Background(), "q", hits)
	if len(model.Prompts) != 1 {
		t.Fatal("model not called")
	}
	if strings.Contains(model.Prompts[0], "Document 21") {
		t.Error("prompt context exceeds the document cap")
	}
}
