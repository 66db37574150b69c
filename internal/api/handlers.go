package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/search"
	"github.com/starford/quire/internal/storage"
)

// Searcher runs vault-wide searches over the section index.
type Searcher interface {
	Search(query string, limit int) ([]models.SectionHit, error)
}

// Handler holds API route handlers.
type Handler struct {
	sess  *noteservice.Session
	store storage.Provider
	idx   Searcher
}

// NewHandler creates a new Handler.
func NewHandler(sess *noteservice.Session, store storage.Provider, idx Searcher) *Handler {
	return &Handler{sess: sess, store: store, idx: idx}
}

// sectionName extracts the {name} URL parameter.
func sectionName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// FileInfo handles GET /api/file.
//
//	@Summary		Metadata of the active note file
//	@Tags			file
//	@Produce		json
//	@Success		200	{object}	FileInfo
//	@Security		BearerAuth
//	@Router			/file [get]
func (h *Handler) FileInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.Info())
}

// OpenFile handles POST /api/file/open.
//
//	@Summary		Open (or create) a note file and make it active
//	@Tags			file
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenFileRequest	true	"File to open"
//	@Success		200		{object}	OpenFileResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/file/open [post]
func (h *Handler) OpenFile(w http.ResponseWriter, r *http.Request) {
	var req OpenFileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	if req.Create {
		err = h.sess.Create(r.Context(), req.Path)
	} else {
		err = h.sess.Open(r.Context(), req.Path)
	}

	resp := OpenFileResponse{}
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrDocumentFormat):
		resp.Warning = apperr.ErrDocumentFormat.Error()
	default:
		writeError(w, "open file", err)
		return
	}
	resp.FileInfo = h.sess.Info()
	writeJSON(w, http.StatusOK, resp)
}

// SaveFile handles POST /api/file/save.
//
//	@Summary		Write the active document to disk
//	@Tags			file
//	@Produce		json
//	@Success		200	{object}	FileInfo
//	@Security		BearerAuth
//	@Router			/file/save [post]
func (h *Handler) SaveFile(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.Save(r.Context()); err != nil {
		writeError(w, "save file", err)
		return
	}
	writeJSON(w, http.StatusOK, h.sess.Info())
}

// ListFiles handles GET /api/files.
//
//	@Summary		List note files under the notes root
//	@Tags			file
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.store.List("")
	if err != nil {
		writeError(w, "list files", err)
		return
	}
	if files == nil {
		files = []models.NoteFile{}
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files, Total: len(files)})
}

// ListSections handles GET /api/sections.
//
//	@Summary		Section names of the active file in file order
//	@Tags			sections
//	@Produce		json
//	@Success		200	{object}	SectionListResponse
//	@Security		BearerAuth
//	@Router			/sections [get]
func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SectionListResponse{
		Sections: h.sess.Sections(),
		Default:  h.sess.DefaultSection(),
		Dirty:    h.sess.Dirty(),
	})
}

// AddSection handles POST /api/sections.
//
//	@Summary		Append an empty section
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddSectionRequest	true	"Section to add"
//	@Success		201		{object}	SectionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections [post]
func (h *Handler) AddSection(w http.ResponseWriter, r *http.Request) {
	var req AddSectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.sess.AddSection(r.Context(), req.Name); err != nil {
		writeError(w, "add section", err)
		return
	}
	writeJSON(w, http.StatusCreated, SectionResponse{Name: req.Name})
}

// GetSection handles GET /api/sections/{name}.
//
//	@Summary		Content of one section
//	@Tags			sections
//	@Produce		json
//	@Param			name	path		string	true	"Section name"
//	@Success		200		{object}	SectionResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{name} [get]
func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request) {
	name := sectionName(r)
	content, err := h.sess.Content(r.Context(), name)
	if err != nil {
		writeError(w, "get section", err)
		return
	}
	writeJSON(w, http.StatusOK, SectionResponse{Name: name, Content: content})
}

// UpdateSection handles PUT /api/sections/{name}.
//
//	@Summary		Replace the content of a section
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string					true	"Section name"
//	@Param			body	body		UpdateSectionRequest	true	"New content"
//	@Success		200		{object}	SectionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{name} [put]
func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	name := sectionName(r)
	var req UpdateSectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.sess.SetContent(r.Context(), name, *req.Content); err != nil {
		writeError(w, "update section", err)
		return
	}
	writeJSON(w, http.StatusOK, SectionResponse{Name: name, Content: *req.Content})
}

// DeleteSection handles DELETE /api/sections/{name}.
//
//	@Summary		Delete a section
//	@Tags			sections
//	@Param			name	path	string	true	"Section name"
//	@Success		204		"Section deleted"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{name} [delete]
func (h *Handler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.DeleteSection(r.Context(), sectionName(r)); err != nil {
		writeError(w, "delete section", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FindInSection handles GET /api/sections/{name}/find.
//
//	@Summary		Case-insensitive search inside one section
//	@Tags			sections
//	@Produce		json
//	@Param			name	path		string	true	"Section name"
//	@Param			q		query		string	true	"Search query, at least 2 characters"
//	@Success		200		{object}	FindResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{name}/find [get]
func (h *Handler) FindInSection(w http.ResponseWriter, r *http.Request) {
	name := sectionName(r)
	q := r.URL.Query().Get("q")
	matches, err := h.sess.Find(r.Context(), name, q)
	if err != nil {
		writeError(w, "find in section", err)
		return
	}
	if matches == nil {
		matches = []search.Match{}
	}
	writeJSON(w, http.StatusOK, FindResponse{
		Section: name,
		Query:   q,
		Matches: matches,
		Summary: search.Summary(matches),
	})
}

// Search handles GET /api/search.
//
//	@Summary		Search all indexed sections
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.idx == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index disabled"))
		return
	}
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.idx.Search(q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []models.SectionHit{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
