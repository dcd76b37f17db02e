// Package api serves the fact store over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wikifacts/internal/query"
)

func NewRouter(q *query.Service, logger *slog.Logger) chi.Router {
	h := NewHandler(q, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/pages/{title}", h.GetPage)
	r.Get("/facts/{kind}/{title}", h.GetFacts)
	r.Get("/closure", h.Closure)
	r.Get("/search", h.Search)
	r.Get("/titles", h.Titles)

	return r
}
