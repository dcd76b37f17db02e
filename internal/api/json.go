package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"wikifacts/internal/query"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

type errResponse struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *query.NotFoundError
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errResponse{Error: nf.Error(), Suggestions: nf.Suggestions})
	case errors.Is(err, query.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: err.Error()})
	case errors.Is(err, query.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error()})
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal error"})
	}
}
