package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/scm-migration-workbench/internal/store"
)

// GetStaged returns one staged collection.
func (s *Server) GetStaged(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "type")
	records, err := s.Service.Staged(r.Context(), kind)
	switch {
	case errors.Is(err, store.ErrNoCollection):
		writeError(w, http.StatusNotFound, "nothing staged yet")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetReport returns a stored accuracy report. With ?accuracies=true the
// diffs are stripped.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	report, err := s.Service.Report(r.Context(), kind)
	switch {
	case errors.Is(err, store.ErrNoCollection):
		writeError(w, http.StatusNotFound, "no report for "+kind)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.URL.Query().Get("accuracies") == "true" {
		writeJSON(w, http.StatusOK, report.Accuracies())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
