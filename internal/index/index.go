package index

import "github.com/starford/quire/internal/models"

// SectionIndex defines the index operations used outside this package.
// Consumers depend on it rather than on *DB so they can be tested with fakes.
type SectionIndex interface {
	UpsertFile(f FileRow, sections []SectionRow) error
	DeleteFile(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Sections(path string) ([]SectionRow, error)
	Search(query string, limit int) ([]models.SectionHit, error)
	Close() error
}

// Verify *DB satisfies SectionIndex at compile time.
var _ SectionIndex = (*DB)(nil)
