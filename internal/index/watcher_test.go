package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/quire/internal/storage"
)

// watcherTestEnv sets up a notes dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, root, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "new.txt"), []byte("<section=a>new"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new.txt")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.txt" {
				return true
			}
		}
		return false
	}, "expected created:new.txt callback")
}

func TestWatcher_IgnoresNonNoteFiles(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, store, root, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "image.png"), []byte("<section=a>x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "marker.txt"), []byte("<section=a>x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("marker.txt")
		return cs != ""
	}, "note file not indexed")

	mu.Lock()
	defer mu.Unlock()
	for _, e := range events {
		if e == "created:image.png" || e == "updated:image.png" {
			t.Errorf("non-note file produced event %q", e)
		}
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(root, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.txt"), []byte("<section=deep>x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(filepath.Join("subdir", "deep.txt"))
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(root, "del.txt"), []byte("<section=a>delete me"), 0o644)
	Sync(db, store, quietLogger())

	cs, _ := db.GetChecksum("del.txt")
	if cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(root, "del.txt"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.txt")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(root, "old.txt"), []byte("<section=a>rename"), 0o644)
	Sync(db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(root, "old.txt"), filepath.Join(root, "renamed.txt"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.txt")
		newCS, _ := db.GetChecksum("renamed.txt")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	path := filepath.Join(root, "burst.txt")
	_ = os.WriteFile(path, []byte("<section=a>0"), 0o644)
	Sync(db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, store, root, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	for i := 1; i <= 5; i++ {
		_ = os.WriteFile(path, []byte("<section=a>"+string(rune('0'+i))), 0o644)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		rows, _ := db.Sections("burst.txt")
		return len(rows) == 1 && rows[0].Content == "5"
	}, "final burst content not indexed")

	time.Sleep(2 * settleDelay)
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 || events[0] != "updated:burst.txt" {
		t.Errorf("events = %v, want a single updated:burst.txt", events)
	}
}

func TestWatcher_IgnoresAtomicTempFiles(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, store, root, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	if err := store.Write("saved.txt", []byte("<section=a>atomic")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("saved.txt")
		return cs != ""
	}, "atomically written file not indexed")

	time.Sleep(2 * settleDelay)
	mu.Lock()
	defer mu.Unlock()
	for _, e := range events {
		if strings.Contains(e, storage.TempPrefix) {
			t.Errorf("temp file produced event %q", e)
		}
	}
}

func TestWatcher_MarkerlessEditDropsSections(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	path := filepath.Join(root, "plain.txt")
	_ = os.WriteFile(path, []byte("<section=a>findable"), 0o644)
	Sync(db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, root, quietLogger(), func(kind, p string) {
		mu.Lock()
		events = append(events, kind+":"+p)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(path, []byte("no markers left"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "updated:plain.txt" {
				return true
			}
		}
		return false
	}, "expected updated:plain.txt callback")

	hits, err := db.Search("findable", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("stale sections still searchable: %+v", hits)
	}
}
