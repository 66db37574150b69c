package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/document"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/search"
)

// OpenFileRequest is the request body for opening or creating a note file.
type OpenFileRequest struct {
	Path   string `json:"path" example:"journal.txt" validate:"required"`
	Create bool   `json:"create,omitempty"`
}

// Validate implements validation.Validatable.
func (r OpenFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// AddSectionRequest is the request body for adding a section.
type AddSectionRequest struct {
	Name string `json:"name" example:"ideas" validate:"required"`
}

// Validate implements validation.Validatable. Letter-only names are checked
// by the document itself so the error maps to the same sentinel everywhere.
func (r AddSectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(document.MinNameLength, 0)),
	)
}

// UpdateSectionRequest is the request body for replacing section content.
// Empty content is allowed.
type UpdateSectionRequest struct {
	Content *string `json:"content" example:"Some text" validate:"required"`
}

// Validate implements validation.Validatable.
func (r UpdateSectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// FileInfo is the active file metadata (aliased from the domain layer).
type FileInfo = noteservice.Info

// FileListResponse wraps the note file listing.
type FileListResponse struct {
	Files []models.NoteFile `json:"files" validate:"required"`
	Total int               `json:"total" example:"3" validate:"required"`
}

// SectionListResponse lists section names in file order.
type SectionListResponse struct {
	Sections []string `json:"sections" validate:"required"`
	Default  string   `json:"default" example:"default" validate:"required"`
	Dirty    bool     `json:"dirty"`
}

// SectionResponse is a single section.
type SectionResponse struct {
	Name    string `json:"name" example:"ideas" validate:"required"`
	Content string `json:"content" example:"Some text"`
}

// FindResponse wraps in-section matches.
type FindResponse struct {
	Section string         `json:"section" validate:"required"`
	Query   string         `json:"query" validate:"required"`
	Matches []search.Match `json:"matches" validate:"required"`
	Summary string         `json:"summary" example:"Match on 1 position found" validate:"required"`
}

// SearchResponse wraps vault-wide search results.
type SearchResponse struct {
	Results []models.SectionHit `json:"results" validate:"required"`
}

// OpenFileResponse is the file metadata after an open. Warning is set when
// the file held no section and was reset to an empty default section.
type OpenFileResponse struct {
	FileInfo
	Warning string `json:"warning,omitempty" example:"no section in file found"`
}
