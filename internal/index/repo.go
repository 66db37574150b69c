package index

import (
	"fmt"
	"time"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path      string
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// SectionRow is one section of an indexed file.
type SectionRow struct {
	Name     string
	Position int
	Content  string
}

// UpsertFile replaces a file row and all of its sections within a transaction.
func (db *DB) UpsertFile(f FileRow, sections []SectionRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO files (path, checksum, size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			size       = excluded.size,
			updated_at = excluded.updated_at
	`, f.Path, f.Checksum, f.Size, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM sections WHERE path = ?`, f.Path); err != nil {
		return fmt.Errorf("index: clear sections: %w", err)
	}
	if err := ftsClear(tx, f.Path); err != nil {
		return err
	}

	if len(sections) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO sections (path, name, position, content) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare section insert: %w", err)
		}
		defer stmt.Close()
		for _, s := range sections {
			if _, err := stmt.Exec(f.Path, s.Name, s.Position, s.Content); err != nil {
				return fmt.Errorf("index: insert section: %w", err)
			}
			if err := ftsInsert(tx, f.Path, s.Name, s.Content); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteFile removes a file and its sections.
func (db *DB) DeleteFile(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsClear(tx, path); err != nil {
		return err
	}
	_, _ = tx.Exec(`DELETE FROM sections WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM files WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Sections returns the indexed sections of a file in file order.
func (db *DB) Sections(path string) ([]SectionRow, error) {
	rows, err := db.conn.Query(`SELECT name, position, content FROM sections WHERE path = ? ORDER BY position`, path)
	if err != nil {
		return nil, fmt.Errorf("index: sections: %w", err)
	}
	defer rows.Close()

	var out []SectionRow
	for rows.Next() {
		var s SectionRow
		if err := rows.Scan(&s.Name, &s.Position, &s.Content); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Stats returns how many files and sections are indexed.
func (db *DB) Stats() (files, sections int, err error) {
	err = db.conn.QueryRow(`
		SELECT (SELECT COUNT(*) FROM files), (SELECT COUNT(*) FROM sections)
	`).Scan(&files, &sections)
	if err != nil {
		return 0, 0, fmt.Errorf("index: stats: %w", err)
	}
	return files, sections, nil
}
