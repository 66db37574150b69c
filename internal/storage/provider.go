// Package storage reads and writes note files under a notes root directory.
package storage

import "github.com/starford/quire/internal/models"

// Provider is the interface for note file operations. Paths are either
// relative to the notes root or absolute.
type Provider interface {
	// Match reports whether a root-relative path names a note file.
	Match(rel string) bool
	// Abs resolves path to the absolute location it refers to.
	Abs(path string) (string, error)
	// Rel returns abs relative to the root, or abs itself when outside.
	Rel(abs string) string
	// List returns every note file under dir that matches the note pattern.
	List(dir string) ([]models.NoteFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Stat returns size and modification time of the file at path.
	Stat(path string) (models.NoteFile, error)
}
