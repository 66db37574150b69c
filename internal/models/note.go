// Package models defines the domain types shared across Quire packages.
package models

import "time"

// NoteFile describes a note file on disk.
type NoteFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SectionHit is a vault-wide search result pointing at one section.
type SectionHit struct {
	Path    string `json:"path"`
	Section string `json:"section"`
	Snippet string `json:"snippet"`
}
