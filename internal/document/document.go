// Package document parses and re-serializes sectioned note files.
//
// A note file is a sequence of sections, each introduced by a marker of the
// form <section=NAME> where NAME is made of ASCII letters. The text after a
// marker, up to the next marker or end of input, is that section's content.
package document

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/quire/internal/apperr"
)

const (
	// DefaultSectionName names the single section of an empty document.
	DefaultSectionName = "default"
	// MinNameLength is the shortest name AddSection accepts.
	MinNameLength = 2
)

var (
	markerRe = regexp.MustCompile(`<section=([a-zA-Z]+)>`)
	nameRe   = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// Document is the in-memory form of a note file. The names slice is the
// source of truth for ordering; content is keyed by name.
//
// A Document always holds at least one section. It is not safe for
// concurrent use.
type Document struct {
	names   []string
	content map[string]string
}

// NewDefault returns a document with a single empty "default" section.
func NewDefault() *Document {
	return &Document{
		names:   []string{DefaultSectionName},
		content: map[string]string{DefaultSectionName: ""},
	}
}

// Parse splits raw into sections. It fails with apperr.ErrDocumentFormat
// when raw holds no marker at all. Text before the first marker is dropped.
// When a name repeats, the later content replaces the earlier one and the
// name keeps its first position.
func Parse(raw string) (*Document, error) {
	locs := markerRe.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		return nil, apperr.ErrDocumentFormat
	}

	d := &Document{content: make(map[string]string, len(locs))}
	for i, loc := range locs {
		name := raw[loc[2]:loc[3]]
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, seen := d.content[name]; !seen {
			d.names = append(d.names, name)
		}
		d.content[name] = raw[loc[1]:end]
	}
	return d, nil
}

// Marker returns the literal marker that introduces the named section.
func Marker(name string) string {
	return "<section=" + name + ">"
}

// ValidName reports whether name can be written as a section marker.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// DefaultSection returns the first section name, the initial view of a file.
func (d *Document) DefaultSection() string {
	return d.names[0]
}

// Sections returns the section names in file order.
func (d *Document) Sections() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of sections.
func (d *Document) Len() int { return len(d.names) }

// Has reports whether a section with the given name exists.
func (d *Document) Has(name string) bool {
	_, ok := d.content[name]
	return ok
}

// AddSection appends a new empty section. Names must be letters only and at
// least MinNameLength long.
func (d *Document) AddSection(name string) error {
	if !ValidName(name) || len(name) < MinNameLength {
		return fmt.Errorf("document: add %q: %w", name, apperr.ErrInvalidSectionName)
	}
	if d.Has(name) {
		return fmt.Errorf("document: add %q: %w", name, apperr.ErrDuplicateSection)
	}
	d.names = append(d.names, name)
	d.content[name] = ""
	return nil
}

// DeleteSection removes a section and its content. The last remaining
// section cannot be deleted.
func (d *Document) DeleteSection(name string) error {
	if !d.Has(name) {
		return fmt.Errorf("document: delete %q: %w", name, apperr.ErrNotFound)
	}
	if len(d.names) == 1 {
		return fmt.Errorf("document: delete %q: %w", name, apperr.ErrLastSection)
	}
	for i, n := range d.names {
		if n == name {
			d.names = append(d.names[:i], d.names[i+1:]...)
			break
		}
	}
	delete(d.content, name)
	return nil
}

// Content returns the text of a section.
func (d *Document) Content(name string) (string, error) {
	text, ok := d.content[name]
	if !ok {
		return "", fmt.Errorf("document: section %q: %w", name, apperr.ErrNotFound)
	}
	return text, nil
}

// SetContent replaces the text of an existing section.
func (d *Document) SetContent(name, text string) error {
	if !d.Has(name) {
		return fmt.Errorf("document: section %q: %w", name, apperr.ErrNotFound)
	}
	d.content[name] = text
	return nil
}

// HasMarker reports whether text contains marker-shaped text. Such text is
// stored as-is and becomes a section boundary on the next Parse.
func HasMarker(text string) bool {
	return markerRe.MatchString(text)
}

// Serialize writes every section back as marker followed by content, in
// section order.
func (d *Document) Serialize() string {
	var b strings.Builder
	for _, name := range d.names {
		b.WriteString(Marker(name))
		b.WriteString(d.content[name])
	}
	return b.String()
}
