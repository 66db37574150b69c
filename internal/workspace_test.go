package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Notes.Dir = filepath.Join(t.TempDir(), "notes")
	cfg.Metadata.Path = filepath.Join(t.TempDir(), "quire", "notes.model")
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "quire.db")
	return cfg
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOpenWorkspace_CreatesFallback(t *testing.T) {
	cfg := testConfig(t)
	ws, err := OpenWorkspace(context.Background(), WithConfig(cfg), quiet())
	if err != nil {
		t.Fatalf("OpenWorkspace: %v", err)
	}
	defer ws.Close()

	want, _ := filepath.Abs(filepath.Join(cfg.Notes.Dir, "sample.txt"))
	if got := ws.Session.FilePath(); got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<section=default>" {
		t.Errorf("fallback content = %q", data)
	}
}

func TestOpenWorkspace_RemembersSavedFile(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	ws, err := OpenWorkspace(ctx, WithConfig(cfg), quiet())
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Session.Create(ctx, "journal.txt"); err != nil {
		t.Fatal(err)
	}
	if err := ws.Session.Save(ctx); err != nil {
		t.Fatal(err)
	}
	journal := ws.Session.FilePath()
	ws.Close()

	ws, err = OpenWorkspace(ctx, WithConfig(cfg), quiet())
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	if got := ws.Session.FilePath(); got != journal {
		t.Errorf("reopened %q, want %q", got, journal)
	}
}

func TestOpenWorkspace_ExplicitFile(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Notes.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Notes.Dir, "plain.txt"), []byte("no markers"), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err := OpenWorkspace(context.Background(), WithConfig(cfg), WithFile("plain.txt"), quiet())
	if err != nil {
		t.Fatalf("marker-less explicit file should still open: %v", err)
	}
	defer ws.Close()
	if got := ws.Session.Sections(); len(got) != 1 || got[0] != "default" {
		t.Errorf("sections = %v", got)
	}
	if !ws.Session.Dirty() {
		t.Error("reset document should be dirty")
	}
}

func TestOpenWorkspace_RequiresConfig(t *testing.T) {
	if _, err := OpenWorkspace(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestWorkspaceWatch_RefreshesActiveFile(t *testing.T) {
	cfg := testConfig(t)
	ws, err := OpenWorkspace(context.Background(), WithConfig(cfg), quiet())
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- ws.watch(ctx, func(kind, path string) { changes <- kind + ":" + path })
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(ws.Session.FilePath(), []byte("<section=default>x<section=remote>y"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changes:
		if c != "updated:sample.txt" && c != "created:sample.txt" {
			t.Errorf("change = %q", c)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for watcher")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(ws.Session.Sections()) != 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := ws.Session.Sections(); len(got) != 2 || got[1] != "remote" {
		t.Errorf("sections after external edit = %v", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watch: %v", err)
	}
}
