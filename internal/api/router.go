package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/askservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *askservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/search", h.Search)
	r.Post("/ask", h.Ask)
	r.Get("/documents/*", h.GetDocument)
	r.Get("/stats", h.Stats)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
