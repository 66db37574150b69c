package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/metadata"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/storage"
)

// Workspace bundles everything a surface needs to work on notes: the notes
// directory, the section index, the persisted metadata and one session with
// the initial file already open.
type Workspace struct {
	Config  *Config
	Store   *storage.FS
	Index   *index.DB
	Meta    *metadata.Store
	Session *noteservice.Session
	Logger  *slog.Logger
}

// OpenWorkspace builds a Workspace from the options and opens the initial
// note file. Close must be called when done.
func OpenWorkspace(ctx context.Context, opts ...Option) (*Workspace, error) {
	app := newApplication(opts)
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return openWorkspace(ctx, app)
}

func openWorkspace(ctx context.Context, app *application) (*Workspace, error) {
	cfg := app.config
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	}

	if err := os.MkdirAll(cfg.Notes.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create notes dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Notes.Dir,
		storage.WithPattern(cfg.Notes.Pattern),
		storage.WithOutsideAccess(cfg.Notes.AllowOutside),
	)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	meta := metadata.NewStore(cfg.Metadata.Path, cfg.Notes.FallbackPath(), logger)
	sess := noteservice.New(store, meta,
		noteservice.WithIndex(db),
		noteservice.WithLogger(logger),
	)

	ws := &Workspace{
		Config:  cfg,
		Store:   store,
		Index:   db,
		Meta:    meta,
		Session: sess,
		Logger:  logger,
	}
	if err := sess.Start(ctx, app.file); err != nil {
		if !errors.Is(err, apperr.ErrDocumentFormat) {
			_ = ws.Close()
			return nil, fmt.Errorf("open initial file: %w", err)
		}
		logger.Warn("initial file has no section, started empty", slog.String("path", sess.FilePath()))
	}
	return ws, nil
}

// Close releases the index.
func (w *Workspace) Close() error {
	return w.Index.Close()
}

// watch runs the index watcher until ctx is done. Every indexed change is
// reported to onChange and, unless it is a deletion, forwarded to the
// session so the active file picks up edits made elsewhere.
func (w *Workspace) watch(ctx context.Context, onChange func(kind, path string)) error {
	return index.Watch(ctx, w.Index, w.Store, w.Store.Root(), w.Logger, func(kind, path string) {
		if onChange != nil {
			onChange(kind, path)
		}
		if kind == index.KindDeleted {
			return
		}
		if err := w.Session.Refresh(ctx, path); err != nil {
			w.Logger.Warn("refresh failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	})
}
