package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/storage"
)

// Kinds passed to EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// settleDelay is how long a path must stay quiet before it is re-indexed.
// Editors and atomic renames produce bursts of events for a single save.
const settleDelay = 75 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
// kind is one of the Kind constants; path is root-relative.
type EventCallback func(kind string, path string)

type watcher struct {
	fsw    *fsnotify.Watcher
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback

	pending   map[string]fsnotify.Op // root-relative path -> ops seen since last flush
	reconcile bool
}

// Watch starts an fsnotify watcher on the notes root and keeps the index
// in sync until ctx is cancelled. Events are collected per path and applied
// once the path settles; the file's state on disk at that point decides
// between re-index and delete. cb (if non-nil) runs after each applied
// change.
//
// Directories created at runtime are added to the watch list. A rename
// triggers a reconciliation pass, since the new name may lie outside the
// watched tree.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{
		fsw:     fsw,
		db:      db,
		store:   store,
		root:    root,
		logger:  logger,
		cb:      cb,
		pending: make(map[string]fsnotify.Op),
	}
	if err := w.addTree(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var (
		flushTimer *time.Timer
		flushC     <-chan time.Time
	)
	schedule := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(settleDelay)
			flushC = flushTimer.C
			return
		}
		flushTimer.Reset(settleDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.observe(ev) {
				schedule()
			}

		case <-flushC:
			w.flush()

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// observe records ev and reports whether anything is now pending.
func (w *watcher) observe(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
			w.collectDir(ev.Name)
			return len(w.pending) > 0
		}
	}

	if strings.HasPrefix(filepath.Base(ev.Name), storage.TempPrefix) {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || !w.store.Match(rel) {
		return false
	}

	if ev.Has(fsnotify.Rename) {
		w.reconcile = true
	}
	w.pending[rel] |= ev.Op
	return true
}

func (w *watcher) flush() {
	for rel, op := range w.pending {
		w.apply(rel, op)
	}
	clear(w.pending)

	if w.reconcile {
		w.reconcile = false
		reconcile(w.db, w.store, w.logger, w.cb)
	}
}

func (w *watcher) apply(rel string, op fsnotify.Op) {
	_, err := os.Stat(filepath.Join(w.root, rel))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cs, _ := w.db.GetChecksum(rel)
		if cs == "" {
			return
		}
		if err := w.db.DeleteFile(rel); err != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		w.logger.Debug("watcher: deleted", slog.String("path", rel))
		w.emit(KindDeleted, rel)

	case err != nil:
		w.logger.Warn("watcher: stat failed", slog.String("path", rel), slog.String("error", err.Error()))

	default:
		kind := KindUpdated
		if op.Has(fsnotify.Create) {
			kind = KindCreated
		}
		err := reindex(w.db, w.store, rel)
		if errors.Is(err, apperr.ErrDocumentFormat) {
			// Old sections must not outlive the markers; listeners still
			// hear about the change.
			if delErr := w.db.DeleteFile(rel); delErr != nil {
				w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
			}
			w.logger.Warn("watcher: file has no sections", slog.String("path", rel))
			w.emit(kind, rel)
			return
		}
		if err != nil {
			w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		w.emit(kind, rel)
	}
}

func (w *watcher) emit(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// collectDir marks every note file below a new directory as created.
func (w *watcher) collectDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr == nil && w.store.Match(rel) {
			w.pending[rel] |= fsnotify.Create
		}
		return nil
	})
}

// addTree adds dir and all its subdirectories to the watch list.
func (w *watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// reindex reads a note file and its modification time and upserts it.
func reindex(db *DB, store storage.Provider, rel string) error {
	data, err := store.Read(rel)
	if err != nil {
		return err
	}
	updated := time.Now()
	if info, statErr := store.Stat(rel); statErr == nil {
		updated = info.UpdatedAt
	}
	return indexFile(db, rel, data, updated)
}

// reconcile removes index entries without a file on disk and indexes
// on-disk files whose checksum differs from the index.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	files, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(files))
	for _, f := range files {
		disk[f.Path] = f.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteFile(p); err == nil {
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			if cb != nil {
				cb(KindDeleted, p)
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if err := reindex(db, store, p); err == nil {
			logger.Debug("reconcile: indexed", slog.String("path", p))
			if cb != nil {
				cb(KindCreated, p)
			}
		}
	}
}
