package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// idx may be nil, in which case /search answers 503.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(sess *noteservice.Session, store storage.Provider, idx Searcher, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(sess, store, idx)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(AuthMiddleware(authEnabled, token))

	// Active file.
	r.Get("/file", h.FileInfo)
	r.Post("/file/open", h.OpenFile)
	r.Post("/file/save", h.SaveFile)
	r.Get("/files", h.ListFiles)

	// Sections of the active file.
	r.Route("/sections", func(r chi.Router) {
		r.Get("/", h.ListSections)
		r.Post("/", h.AddSection)
		r.Get("/{name}", h.GetSection)
		r.Put("/{name}", h.UpdateSection)
		r.Delete("/{name}", h.DeleteSection)
		r.Get("/{name}/find", h.FindInSection)
	})

	// Vault-wide search.
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
