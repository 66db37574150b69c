package metadata

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/quire/internal/document"
	"github.com/starford/quire/internal/storage"
)

// lineLen matches the MIME line length used by the blob encoder.
const lineLen = 76

// blob is the on-disk JSON shape. The underscore keys were written by
// earlier versions and are still read.
type blob struct {
	FilePath      string `json:"file_path"`
	FileSize      int64  `json:"file_size"`
	LastUpdatedOn string `json:"last_updated_on"`

	LegacyFilePath      string `json:"_file_path,omitempty"`
	LegacyFileSize      int64  `json:"_file_size,omitempty"`
	LegacyLastUpdatedOn string `json:"_last_updated_on,omitempty"`
}

func (b blob) record() Record {
	if b.FilePath == "" && b.LegacyFilePath != "" {
		return Record{
			FilePath:      b.LegacyFilePath,
			FileSize:      b.LegacyFileSize,
			LastUpdatedOn: b.LegacyLastUpdatedOn,
		}
	}
	return Record{FilePath: b.FilePath, FileSize: b.FileSize, LastUpdatedOn: b.LastUpdatedOn}
}

// Store persists a Record as base64-encoded JSON at a fixed path and decides
// which note file to open at startup.
type Store struct {
	path     string
	fallback string
	logger   *slog.Logger
}

// NewStore creates a store writing to path. fallback is the note file used
// when neither an explicit nor a persisted file is available.
func NewStore(path, fallback string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, fallback: fallback, logger: logger}
}

// Path returns the blob location.
func (s *Store) Path() string { return s.path }

// Fallback returns the fallback note file.
func (s *Store) Fallback() string { return s.fallback }

// Load reads the persisted record. Any failure yields an empty record.
func (s *Store) Load() Record {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("metadata: read failed", slog.String("path", s.path), slog.String("error", err.Error()))
		}
		return Record{}
	}
	rec, err := decode(raw)
	if err != nil {
		s.logger.Debug("metadata: decode failed", slog.String("path", s.path), slog.String("error", err.Error()))
		return Record{}
	}
	return rec
}

// Save writes rec atomically, creating the parent directory if needed.
func (s *Store) Save(rec Record) error {
	data, err := encode(rec)
	if err != nil {
		return fmt.Errorf("metadata: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("metadata: mkdir: %w", err)
	}
	if err := storage.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("metadata: save: %w", err)
	}
	s.logger.Debug("metadata: saved", slog.String("path", s.path), slog.String("file", rec.FilePath))
	return nil
}

// ResolveInitialFile picks the note file to open: the explicit path if it
// exists, else the persisted path if it exists, else the fallback file
// (created with a single empty section when missing). Size and time are
// always read fresh from the filesystem. A candidate rejected by accept is
// skipped like a missing one; a nil accept takes every existing file.
func (s *Store) ResolveInitialFile(explicit string, accept func(path string) bool) (Record, error) {
	if explicit != "" {
		if rec, ok := s.candidate(explicit, accept); ok {
			return rec, nil
		}
		s.logger.Info("metadata: explicit file not usable", slog.String("path", explicit))
	}

	if prev := s.Load(); !prev.IsZero() {
		if rec, ok := s.candidate(prev.FilePath, accept); ok {
			return rec, nil
		}
		s.logger.Info("metadata: persisted file not usable", slog.String("path", prev.FilePath))
	}

	if _, err := os.Stat(s.fallback); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(s.fallback), 0o755); err != nil {
			return Record{}, fmt.Errorf("metadata: mkdir fallback: %w", err)
		}
		seed := []byte(document.Marker(document.DefaultSectionName))
		if err := storage.WriteFileAtomic(s.fallback, seed, 0o644); err != nil {
			return Record{}, fmt.Errorf("metadata: create fallback: %w", err)
		}
		s.logger.Info("metadata: created fallback file", slog.String("path", s.fallback))
	}
	return Stat(s.fallback)
}

func (s *Store) candidate(path string, accept func(string) bool) (Record, bool) {
	rec, err := Stat(path)
	if err != nil {
		return Record{}, false
	}
	if accept != nil && !accept(rec.FilePath) {
		return Record{}, false
	}
	return rec, true
}

// Stat computes a fresh record for path. The path is made absolute.
func Stat(path string) (Record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Record{}, fmt.Errorf("metadata: resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Record{}, fmt.Errorf("metadata: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Record{}, fmt.Errorf("metadata: %s is a directory", path)
	}
	return Record{
		FilePath:      abs,
		FileSize:      info.Size(),
		LastUpdatedOn: FormatTime(info.ModTime()),
	}, nil
}

func encode(rec Record) ([]byte, error) {
	js, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	enc := base64.StdEncoding.EncodeToString(js)

	var buf bytes.Buffer
	for len(enc) > lineLen {
		buf.WriteString(enc[:lineLen])
		buf.WriteByte('\n')
		enc = enc[lineLen:]
	}
	buf.WriteString(enc)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func decode(raw []byte) (Record, error) {
	compact := bytes.Join(bytes.Fields(raw), nil)
	js := make([]byte, base64.StdEncoding.DecodedLen(len(compact)))
	n, err := base64.StdEncoding.Decode(js, compact)
	if err != nil {
		return Record{}, fmt.Errorf("base64: %w", err)
	}
	var b blob
	if err := json.Unmarshal(js[:n], &b); err != nil {
		return Record{}, fmt.Errorf("json: %w", err)
	}
	return b.record(), nil
}
