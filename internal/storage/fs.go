package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// DefaultPattern selects note files when no pattern is configured.
const DefaultPattern = "**/*.txt"

// FS implements Provider backed by the local file system.
type FS struct {
	root         string // absolute path to the notes directory
	pattern      string // doublestar pattern, slash separated, relative to root
	allowOutside bool   // accept absolute paths outside root
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithPattern sets the glob that List uses to pick note files.
func WithPattern(pattern string) FSOption {
	return func(f *FS) {
		if pattern != "" {
			f.pattern = pattern
		}
	}
}

// WithOutsideAccess lets absolute paths outside the root through. The
// desktop flow opens arbitrary files; network surfaces should leave it off.
func WithOutsideAccess(allow bool) FSOption {
	return func(f *FS) { f.allowOutside = allow }
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{root: abs, pattern: DefaultPattern}
	for _, opt := range opts {
		opt(f)
	}
	if !doublestar.ValidatePattern(f.pattern) {
		return nil, fmt.Errorf("storage: invalid pattern %q", f.pattern)
	}
	return f, nil
}

// Root returns the absolute notes directory.
func (f *FS) Root() string { return f.root }

// Abs resolves a path against the notes root and rejects any result that
// escapes it, unless outside access is enabled for absolute paths.
func (f *FS) Abs(path string) (string, error) {
	if path == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(path)
	if filepath.IsAbs(cleaned) {
		if f.allowOutside || f.within(cleaned) {
			return cleaned, nil
		}
		return "", fmt.Errorf("storage: %s outside notes root: %w", path, apperr.ErrInvalidPath)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !f.within(abs) {
		return "", fmt.Errorf("storage: %s escapes notes root: %w", path, apperr.ErrInvalidPath)
	}
	return abs, nil
}

func (f *FS) within(abs string) bool {
	return abs == f.root || strings.HasPrefix(abs, f.root+string(os.PathSeparator))
}

// Rel returns path relative to the root when it lies inside it, and the
// absolute path otherwise.
func (f *FS) Rel(abs string) string {
	if !f.within(abs) {
		return abs
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return abs
	}
	return rel
}

// Match reports whether a root-relative path is a note file.
func (f *FS) Match(rel string) bool {
	ok, err := doublestar.Match(f.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// List walks dir (relative to root) and returns metadata for every note file.
func (f *FS) List(dir string) ([]models.NoteFile, error) {
	base, err := f.Abs(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteFile
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(f.root, p)
		if !f.Match(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, models.NoteFile{
			Path:      rel,
			Checksum:  Checksum(data),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a note file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces the content of a note file.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	return WriteFileAtomic(abs, content, 0o644)
}

// Stat returns size and modification time. Checksum is left empty.
func (f *FS) Stat(path string) (models.NoteFile, error) {
	abs, err := f.Abs(path)
	if err != nil {
		return models.NoteFile{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.NoteFile{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return models.NoteFile{Path: abs, Size: info.Size(), UpdatedAt: info.ModTime()}, nil
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
