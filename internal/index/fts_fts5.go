//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/search"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS sections_fts USING fts5(
			path UNINDEXED,
			name,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, path, name, content string) error {
	_, err := tx.Exec(`INSERT INTO sections_fts (path, name, content) VALUES (?, ?, ?)`, path, name, content)
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsClear(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(`DELETE FROM sections_fts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching sections with snippets.
func (db *DB) Search(query string, limit int) ([]models.SectionHit, error) {
	if err := search.Validate(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       name,
		       snippet(sections_fts, 2, '<b>', '</b>', '...', 16)
		FROM sections_fts
		WHERE sections_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []models.SectionHit
	for rows.Next() {
		var h models.SectionHit
		if err := rows.Scan(&h.Path, &h.Section, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
