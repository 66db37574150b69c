// Package testutil provides shared test helpers for notes directories,
// indexes and sessions.
package testutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/metadata"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/storage"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "quire-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary notes directory seeded with files
// (root-relative path to content).
func TestVault(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// TestSession syncs db with store and returns a session with path open.
// The metadata record lives in its own temp dir.
func TestSession(t *testing.T, store *storage.FS, db *index.DB, path string) *noteservice.Session {
	t.Helper()
	logger := Logger()
	if err := index.Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	ms := metadata.NewStore(filepath.Join(t.TempDir(), "notes.model"), filepath.Join(store.Root(), "sample.txt"), logger)
	sess := noteservice.New(store, ms, noteservice.WithIndex(db), noteservice.WithLogger(logger))
	if err := sess.Open(context.Background(), path); err != nil && !errors.Is(err, apperr.ErrDocumentFormat) {
		t.Fatalf("Open %s: %v", path, err)
	}
	return sess
}
