package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/askservice"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	svc *askservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *askservice.Service) *Handler {
	return &Handler{svc: svc}
}

// documentPath extracts the document path from the URL (everything after
// /api/documents/). Supports encoded slashes (e.g. daily%2F2025-01-02.md).
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// searchResponse is the payload for GET /api/search.
type searchResponse struct {
	Question string       `json:"question"`
	Hits     []search.Hit `json:"hits"`
	Total    int          `json:"total"`
}

// Search handles GET /api/search?q=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("q")
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	_, hits := h.svc.Search(r.Context(), question)
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Question: question, Hits: hits, Total: len(hits)})
}

// askResponse is the payload for POST /api/ask.
type askResponse struct {
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
	Hits     []search.Hit `json:"hits"`
}

// Ask handles POST /api/ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("question is required"))
		return
	}

	answer, hits := h.svc.Ask(r.Context(), req.Question)
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(w, http.StatusOK, askResponse{Question: req.Question, Answer: answer, Hits: hits})
}

// documentResponse is the payload for GET /api/documents/*.
type documentResponse struct {
	Path        string   `json:"path"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Preview     string   `json:"preview"`
	Tags        []string `json:"tags"`
	Dates       []string `json:"dates"`
}

// GetDocument handles GET /api/documents/*.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	rec, err := h.svc.Document(path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get document failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(rec))
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	docs, tags, err := h.svc.Stats()
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"documents": docs, "tags": tags})
}

func toDocumentResponse(rec *index.Record) documentResponse {
	return documentResponse{
		Path:        rec.Path,
		Title:       rec.Title,
		Description: rec.Description,
		Preview:     rec.Preview,
		Tags:        nonNilSlice(rec.Tags),
		Dates:       nonNilSlice(rec.Dates),
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
