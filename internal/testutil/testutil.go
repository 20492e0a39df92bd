// Package testutil provides shared test helpers for setting up vaults,
// databases, and model stubs.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteDoc writes a document into the vault directory, creating parent
// directories as needed.
func WriteDoc(t *testing.T, vaultDir, rel, content string) {
	t.Helper()
	p := filepath.Join(vaultDir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// StubModel is a deterministic llm.Invoker for tests. Each Invoke returns
// Response and records the prompt; a non-nil Err fails every call. Invoke
// is safe for concurrent use so the stub can sit behind a worker pool.
type StubModel struct {
	Response string
	Err      error

	mu      sync.Mutex
	Prompts []string
}

// Invoke implements llm.Invoker.
func (s *StubModel) Invoke(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.Prompts = append(s.Prompts, prompt)
	s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.Response, nil
}
