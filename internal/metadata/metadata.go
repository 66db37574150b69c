// Package metadata tracks which note file is current, with its size and
// modification time, and persists that record across runs.
package metadata

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/quire/internal/observer"
)

// TimeFormat is the layout of Record.LastUpdatedOn.
const TimeFormat = "2006-01-02 15:04:05"

// Record is the plain, persisted form of Metadata.
type Record struct {
	FilePath      string `json:"file_path"`
	FileSize      int64  `json:"file_size"`
	LastUpdatedOn string `json:"last_updated_on"`
}

// IsZero reports whether no file is recorded.
func (r Record) IsZero() bool { return r.FilePath == "" }

// FormatTime renders a modification time the way it is stored.
func FormatTime(t time.Time) string {
	return t.Local().Format(TimeFormat)
}

// Metadata is the observable cache of facts about the current note file.
// Every setter notifies observers after applying the change, even when the
// value did not change.
type Metadata struct {
	observer.Subject
	rec Record
}

// New returns Metadata holding rec. No observer is registered yet.
func New(rec Record) *Metadata {
	return &Metadata{rec: rec}
}

// FilePath returns the path of the current note file.
func (m *Metadata) FilePath() string { return m.rec.FilePath }

// FileSize returns the cached size in bytes.
func (m *Metadata) FileSize() int64 { return m.rec.FileSize }

// LastUpdatedOn returns the cached, formatted modification time.
func (m *Metadata) LastUpdatedOn() string { return m.rec.LastUpdatedOn }

// SetFilePath records a new current file.
func (m *Metadata) SetFilePath(path string) {
	m.rec.FilePath = path
	m.NotifyObservers()
}

// SetFileSize records the file size in bytes.
func (m *Metadata) SetFileSize(size int64) {
	m.rec.FileSize = size
	m.NotifyObservers()
}

// SetLastUpdatedOn records the modification time, formatted with TimeFormat.
func (m *Metadata) SetLastUpdatedOn(t time.Time) {
	m.rec.LastUpdatedOn = FormatTime(t)
	m.NotifyObservers()
}

// Snapshot returns a copy of the current values.
func (m *Metadata) Snapshot() Record { return m.rec }

// Formatted renders the values as labelled lines for display.
func (m *Metadata) Formatted() string {
	return strings.Join([]string{
		fmt.Sprintf("File path : %s", m.rec.FilePath),
		fmt.Sprintf("File size (bytes) : %d", m.rec.FileSize),
		fmt.Sprintf("Last updated on : %s", m.rec.LastUpdatedOn),
	}, "\n")
}
