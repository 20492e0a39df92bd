package askservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededDB(t *testing.T) *index.DB {
	t.Helper()
	db := testutil.TestDB(t)
	err := db.Upsert(index.Record{
		Path:        "daily/2025-01-10.md",
		Title:       "Standup",
		Preview:     "Worked on the billing service.",
		Fingerprint: "fp",
		Tags:        []string{"billing"},
		Dates:       []string{"2025-01-10"},
		IndexedAt:   time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func TestSearch_ModelExtractionDrivesRetrieval(t *testing.T) {
	db := seededDB(t)
	model := &testutil.StubModel{Response: `{"dates": ["2025-01"], "tags": [], "filenames": [], "keywords": []}`}
	svc := New(db, model, 100, testLogger())

	q, hits := svc.Search(context.Background(), "what did I do in january 2025?")
	if len(q.Dates) != 1 {
		t.Fatalf("parsed dates = %v", q.Dates)
	}
	if len(hits) != 1 || hits[0].Path != "daily/2025-01-10.md" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearch_FallbackWhenModelFails(t *testing.T) {
	db := seededDB(t)
	model := &testutil.StubModel{Err: errors.New("down")}
	svc := New(db, model, 100, testLogger())

	_, hits := svc.Search(context.Background(), "billing service work")
	if len(hits) != 1 {
		t.Errorf("hits = %+v, want content fallback match", hits)
	}
}

func TestAsk_EndToEnd(t *testing.T) {
	db := seededDB(t)
	// One stub serves both the parse call and the synthesis call; the
	// answer path accepts any non-JSON text, the parse path falls back.
	model := &testutil.StubModel{Response: "You worked on billing."}
	svc := New(db, model, 100, testLogger())

	answer, hits := svc.Ask(context.Background(), "what about billing?")
	if answer != "You worked on billing." {
		t.Errorf("answer = %q", answer)
	}
	if len(hits) != 1 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestAsk_NoMatchesSaysSo(t *testing.T) {
	db := testutil.TestDB(t)
	svc := New(db, nil, 100, testLogger())

	answer, hits := svc.Ask(context.Background(), "anything indexed?")
	if len(hits) != 0 {
		t.Fatalf("hits = %+v, want none", hits)
	}
	if !strings.Contains(answer, "No relevant documents found") {
		t.Errorf("answer = %q", answer)
	}
}

func TestDocument_NotFound(t *testing.T) {
	svc := New(testutil.TestDB(t), nil, 100, testLogger())
	if _, err := svc.Document("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want apperr.ErrNotFound", err)
	}
}

func TestStats(t *testing.T) {
	svc := New(seededDB(t), nil, 100, testLogger())
	docs, tags, err := svc.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if docs != 1 || tags != 1 {
		t.Errorf("stats = (%d, %d), want (1, 1)", docs, tags)
	}
}
