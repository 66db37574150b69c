//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/search"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on sections.content.
	return nil
}

func ftsInsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsClear(_ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
// The snippet is the first in-section match, as the section search shows it.
func (db *DB) Search(query string, limit int) ([]models.SectionHit, error) {
	if err := search.Validate(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT path, name, content
		FROM sections
		WHERE content LIKE ? OR name LIKE ?
		ORDER BY path, position
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []models.SectionHit
	for rows.Next() {
		var h models.SectionHit
		var content string
		if err := rows.Scan(&h.Path, &h.Section, &content); err != nil {
			return nil, err
		}
		if matches, _ := search.Find(content, query); len(matches) > 0 {
			h.Snippet = matches[0].Snippet()
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
