package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/quire/internal/document"
	"github.com/starford/quire/internal/storage"
)

// Sync walks the notes directory and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// Files without any section marker are logged and left out.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteFile(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexDocument upserts an already parsed document. The session calls it
// after a save so the index does not wait for the watcher.
func IndexDocument(db SectionIndex, path string, doc *document.Document, data []byte, updated time.Time) error {
	names := doc.Sections()
	rows := make([]SectionRow, 0, len(names))
	for i, name := range names {
		content, _ := doc.Content(name)
		rows = append(rows, SectionRow{Name: name, Position: i, Content: content})
	}
	return db.UpsertFile(FileRow{
		Path:      path,
		Checksum:  storage.Checksum(data),
		Size:      int64(len(data)),
		UpdatedAt: updated,
	}, rows)
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, path string, data []byte, updated time.Time) error {
	doc, err := document.Parse(string(data))
	if err != nil {
		return fmt.Errorf("index: parse %s: %w", path, err)
	}
	return IndexDocument(db, path, doc, data, updated)
}
