package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wikifacts/internal/facts"
	"wikifacts/internal/query"
)

const defaultTitleLimit = 20

type Handler struct {
	query  *query.Service
	logger *slog.Logger
}

func NewHandler(q *query.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{query: q, logger: logger}
}

// titleParam reads a path segment, accepting percent-encoded slashes.
func titleParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetPage handles GET /pages/{title}.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.query.Page(r.Context(), titleParam(r, "title"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetFacts handles GET /facts/{kind}/{title}.
func (h *Handler) GetFacts(w http.ResponseWriter, r *http.Request) {
	kind, err := facts.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", query.ErrInvalidInput, err))
		return
	}
	rec, err := h.query.Facts(r.Context(), kind, titleParam(r, "title"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Closure handles GET /closure?root=...&depth=...
func (h *Handler) Closure(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	depth := query.DefaultDepth
	if raw := q.Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: depth must be an integer", query.ErrInvalidInput))
			return
		}
		depth = n
	}

	res, err := h.query.Closure(r.Context(), q.Get("root"), depth)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Search handles GET /search?q=...&limit=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	results, err := h.query.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}

// Titles handles GET /titles?prefix=...&limit=...
func (h *Handler) Titles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultTitleLimit
	}
	matches := h.query.Suggest(q.Get("prefix"), limit)
	if matches == nil {
		matches = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"titles": matches})
}
