package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
)

func testVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSync_IndexesNewFiles(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t)
	writeFile(t, dir, "notes/a.md", "---\ntitle: A\ntags: [alpha]\n---\nBody of A with 2025-05-01.\n")
	writeFile(t, dir, "b.md", "# B Heading\n#beta content\n")

	if err := Sync(db, store, 0, discard()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	a, err := db.Get("notes/a.md")
	if err != nil {
		t.Fatalf("Get a: %v", err)
	}
	if a.Title != "A" {
		t.Errorf("title = %q, want A", a.Title)
	}
	if len(a.Tags) != 1 || a.Tags[0] != "alpha" {
		t.Errorf("tags = %v", a.Tags)
	}
	if len(a.Dates) != 1 || a.Dates[0] != "2025-05-01" {
		t.Errorf("dates = %v", a.Dates)
	}

	b, err := db.Get("b.md")
	if err != nil {
		t.Fatalf("Get b: %v", err)
	}
	if b.Title != "B Heading" {
		t.Errorf("title = %q, want B Heading", b.Title)
	}
}

func TestSync_SkipsUnchangedFiles(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t)
	writeFile(t, dir, "a.md", "# A\ncontent\n")

	if err := Sync(db, store, 0, discard()); err != nil {
		t.Fatal(err)
	}
	first, err := db.Get("a.md")
	if err != nil {
		t.Fatal(err)
	}

	if err := Sync(db, store, 0, discard()); err != nil {
		t.Fatal(err)
	}
	second, err := db.Get("a.md")
	if err != nil {
		t.Fatal(err)
	}
	// Unchanged fingerprint means the record is not re-upserted.
	if !second.IndexedAt.Equal(first.IndexedAt) {
		t.Errorf("indexed_at changed on unchanged file: %v -> %v", first.IndexedAt, second.IndexedAt)
	}
}

func TestSync_ReindexesChangedFiles(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t)
	writeFile(t, dir, "a.md", "# Old Title\n")
	if err := Sync(db, store, 0, discard()); err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "a.md", "# New Title\n")
	if err := Sync(db, store, 0, discard()); err != nil {
		t.Fatal(err)
	}

	got, err := db.Get("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "New Title" {
		t.Errorf("title = %q, want New Title", got.Title)
	}
}

func TestSync_RemovesDeletedFiles(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t)
	writeFile(t, dir, "keep.md", "# Keep\n")
	writeFile(t, dir, "gone.md", "# Gone\n")
	if err := Sync(db, store, 0, discard()); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, "gone.md")); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, 0, discard()); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Get("gone.md"); err == nil {
		t.Error("deleted file still indexed")
	}
	if _, err := db.Get("keep.md"); err != nil {
		t.Errorf("surviving file lost: %v", err)
	}
}

func TestSync_Idempotent(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t)
	writeFile(t, dir, "a.md", "# A\n#tag1\n")

	for i := 0; i < 3; i++ {
		if err := Sync(db, store, 0, discard()); err != nil {
			t.Fatalf("Sync pass %d: %v", i, err)
		}
	}

	docs, tags, err := db.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if docs != 1 || tags != 1 {
		t.Errorf("stats = (%d docs, %d tags), want (1, 1)", docs, tags)
	}
}

// unreadableStore reports one path as present but unreadable: its listing
// carries an empty fingerprint and reads of it fail.
type unreadableStore struct {
	*storage.FS
	path string
}

func (u *unreadableStore) List(dir string) ([]models.FileMeta, error) {
	metas, err := u.FS.List(dir)
	if err != nil {
		return nil, err
	}
	for i := range metas {
		if metas[i].Path == u.path {
			metas[i].Fingerprint = ""
		}
	}
	return metas, nil
}

func (u *unreadableStore) Read(path string) ([]byte, error) {
	if path == u.path {
		return nil, errors.New("permission denied")
	}
	return u.FS.Read(path)
}

func TestSync_UnreadableFileKeepsRecord(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t)
	writeFile(t, dir, "a.md", "---\ntitle: A\n---\nBody.\n")
	writeFile(t, dir, "b.md", "# B\n")

	if err := Sync(db, store, 0, discard()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	broken := &unreadableStore{FS: store, path: "a.md"}
	if err := Sync(db, broken, 0, discard()); err != nil {
		t.Fatalf("Sync with unreadable file: %v", err)
	}

	rec, err := db.Get("a.md")
	if err != nil {
		t.Fatalf("record for unreadable file was removed: %v", err)
	}
	if rec.Title != "A" {
		t.Errorf("title = %q, want A", rec.Title)
	}
	if _, err := db.Get("b.md"); err != nil {
		t.Errorf("readable file lost: %v", err)
	}
}
