// Package noteservice holds the editing session: the active note file, its
// parsed document and its metadata. It is the single writer every surface
// (CLI, REST, MCP) goes through.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/document"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/metadata"
	"github.com/starford/quire/internal/search"
	"github.com/starford/quire/internal/storage"
)

// Event kinds emitted to listeners.
const (
	EventFileOpened      = "file.opened"
	EventFileSaved       = "file.saved"
	EventFileReloaded    = "file.reloaded"
	EventFileConflict    = "file.conflict"
	EventSectionCreated  = "section.created"
	EventSectionUpdated  = "section.updated"
	EventSectionDeleted  = "section.deleted"
	EventMetadataUpdated = "metadata.updated"
)

// Event describes a change to the session.
type Event struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Path    string `json:"path,omitempty"`
	Section string `json:"section,omitempty"`
}

// Listener receives session events. It runs while the session lock is held
// and must not call back into the session.
type Listener func(Event)

// Info is the metadata snapshot plus session state.
type Info struct {
	metadata.Record
	Dirty     bool   `json:"dirty"`
	Formatted string `json:"formatted"`
}

// Session is safe for concurrent use; every method serializes on one lock.
type Session struct {
	mu sync.Mutex

	id        string
	store     storage.Provider
	metaStore *metadata.Store
	meta      *metadata.Metadata
	idx       index.SectionIndex
	logger    *slog.Logger

	doc      *document.Document
	checksum string // of the bytes last read from or written to disk
	dirty    bool

	listeners []Listener
}

// Option configures a Session.
type Option func(*Session)

// WithIndex keeps idx up to date on every save.
func WithIndex(idx index.SectionIndex) Option {
	return func(s *Session) { s.idx = idx }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a session with a default empty document. Call Start or Open
// to load a file.
func New(store storage.Provider, metaStore *metadata.Store, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		store:     store,
		metaStore: metaStore,
		meta:      metadata.New(metadata.Record{}),
		logger:    slog.Default(),
		doc:       document.NewDefault(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.meta.Subscribe(func() {
		s.emit(EventMetadataUpdated, s.meta.FilePath(), "")
	})
	return s
}

// ID identifies this session in emitted events.
func (s *Session) ID() string { return s.id }

// AddListener registers fn for every subsequent event.
func (s *Session) AddListener(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// ObserveMetadata registers fn for every metadata change. fn receives a
// snapshot and runs under the session lock, so it must not call back into
// the session or the returned unsubscribe func.
func (s *Session) ObserveMetadata(fn func(metadata.Record)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unsub := s.meta.Subscribe(func() { fn(s.meta.Snapshot()) })
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		unsub()
	}
}

// Start opens the initial file: explicit if it exists, else the persisted
// last-used file, else the fallback file. Candidates the store refuses to
// open, such as paths outside the notes root, count as missing.
func (s *Session) Start(ctx context.Context, explicit string) error {
	if explicit != "" {
		if abs, err := s.store.Abs(explicit); err == nil {
			explicit = abs
		}
	}
	rec, err := s.metaStore.ResolveInitialFile(explicit, s.canOpen)
	if err != nil {
		return fmt.Errorf("noteservice: resolve initial file: %w", err)
	}
	return s.Open(ctx, rec.FilePath)
}

// Open reads and parses a note file and makes it the active file. When the
// file holds no section marker the session still switches to it, with a
// single empty default section, and the apperr.ErrDocumentFormat error is
// returned so the caller can prompt for a section.
func (s *Session) Open(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	abs, err := s.store.Abs(path)
	if err != nil {
		return err
	}
	data, err := s.store.Read(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("noteservice: open %s: %w", path, apperr.ErrNotFound)
		}
		return err
	}

	doc, parseErr := document.Parse(string(data))
	if parseErr != nil {
		doc = document.NewDefault()
		s.logger.Warn("open: no sections, starting empty", slog.String("path", abs))
	}
	s.doc = doc
	s.checksum = storage.Checksum(data)
	s.dirty = parseErr != nil

	if err := s.refreshMetadata(abs); err != nil {
		return err
	}
	s.logger.Info("open: file opened", slog.String("path", abs), slog.Int("sections", doc.Len()))
	s.emit(EventFileOpened, abs, "")

	if parseErr != nil {
		return fmt.Errorf("noteservice: open %s: %w", path, parseErr)
	}
	return nil
}

// Create writes a new note file with a single empty default section and
// opens it.
func (s *Session) Create(ctx context.Context, path string) error {
	s.mu.Lock()
	abs, err := s.store.Abs(path)
	if err == nil {
		if _, statErr := s.store.Stat(abs); statErr == nil {
			err = fmt.Errorf("noteservice: create %s: %w", path, apperr.ErrAlreadyExists)
		}
	}
	if err == nil {
		err = s.store.Write(abs, []byte(document.NewDefault().Serialize()))
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Open(ctx, abs)
}

// Save serializes the document to the active file, refreshes metadata,
// persists the metadata record and updates the index.
func (s *Session) Save(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.meta.FilePath()
	if path == "" {
		return fmt.Errorf("noteservice: save: no file open: %w", apperr.ErrNotFound)
	}
	data := []byte(s.doc.Serialize())
	if err := s.store.Write(path, data); err != nil {
		return fmt.Errorf("noteservice: save: %w", err)
	}
	s.checksum = storage.Checksum(data)
	s.dirty = false

	if err := s.refreshMetadata(path); err != nil {
		return err
	}
	if err := s.metaStore.Save(s.meta.Snapshot()); err != nil {
		return fmt.Errorf("noteservice: save metadata: %w", err)
	}
	s.updateIndex(path, data)

	s.logger.Info("save: file saved", slog.String("path", path), slog.Int("bytes", len(data)))
	s.emit(EventFileSaved, path, "")
	return nil
}

// Refresh is called when path changed on disk. For the active file the
// metadata is re-read; if the content differs from what the session last
// saw, a clean document is reloaded and a dirty one is flagged as conflict.
func (s *Session) Refresh(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	abs, err := s.store.Abs(path)
	if err != nil || abs != s.meta.FilePath() {
		return err
	}
	data, err := s.store.Read(abs)
	if err != nil {
		return err
	}
	if err := s.refreshMetadata(abs); err != nil {
		return err
	}
	cs := storage.Checksum(data)
	if cs == s.checksum {
		return nil
	}
	if s.dirty {
		s.logger.Warn("refresh: file changed on disk with unsaved edits", slog.String("path", abs))
		s.emit(EventFileConflict, abs, "")
		return nil
	}
	doc, err := document.Parse(string(data))
	if err != nil {
		s.logger.Warn("refresh: changed file has no sections", slog.String("path", abs))
		return nil
	}
	s.doc = doc
	s.checksum = cs
	s.emit(EventFileReloaded, abs, "")
	return nil
}

// Info returns the metadata snapshot and dirty flag.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{Record: s.meta.Snapshot(), Dirty: s.dirty, Formatted: s.meta.Formatted()}
}

// FilePath returns the absolute path of the active file.
func (s *Session) FilePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.FilePath()
}

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Sections returns the section names in file order.
func (s *Session) Sections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Sections()
}

// DefaultSection returns the section shown first.
func (s *Session) DefaultSection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.DefaultSection()
}

// AddSection appends an empty section.
func (s *Session) AddSection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.doc.AddSection(name); err != nil {
		return err
	}
	s.dirty = true
	s.emit(EventSectionCreated, s.meta.FilePath(), name)
	return nil
}

// DeleteSection removes a section. The last section cannot be deleted.
func (s *Session) DeleteSection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.doc.DeleteSection(name); err != nil {
		return err
	}
	s.dirty = true
	s.emit(EventSectionDeleted, s.meta.FilePath(), name)
	return nil
}

// Content returns the text of a section.
func (s *Session) Content(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Content(name)
}

// SetContent replaces the text of a section.
func (s *Session) SetContent(_ context.Context, name, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.doc.SetContent(name, text); err != nil {
		return err
	}
	s.dirty = true
	s.emit(EventSectionUpdated, s.meta.FilePath(), name)
	return nil
}

// Find searches one section of the active document.
func (s *Session) Find(_ context.Context, section, query string) ([]search.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, err := s.doc.Content(section)
	if err != nil {
		return nil, err
	}
	return search.Find(text, query)
}

func (s *Session) canOpen(path string) bool {
	_, err := s.store.Abs(path)
	return err == nil
}

// refreshMetadata re-stats path and pushes the values through the
// metadata setters, which notify observers.
func (s *Session) refreshMetadata(path string) error {
	info, err := s.store.Stat(path)
	if err != nil {
		return fmt.Errorf("noteservice: stat %s: %w", path, err)
	}
	s.meta.SetFilePath(info.Path)
	s.meta.SetFileSize(info.Size)
	s.meta.SetLastUpdatedOn(info.UpdatedAt)
	return nil
}

func (s *Session) updateIndex(path string, data []byte) {
	if s.idx == nil {
		return
	}
	rel := s.store.Rel(path)
	if rel == path {
		// Files outside the notes root are not indexed.
		return
	}
	if err := index.IndexDocument(s.idx, rel, s.doc, data, time.Now()); err != nil {
		s.logger.Warn("save: index update failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

func (s *Session) emit(kind, path, section string) {
	ev := Event{Type: kind, Session: s.id, Path: path, Section: section}
	for _, l := range s.listeners {
		l(ev)
	}
}
