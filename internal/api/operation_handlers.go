package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/scm-migration-workbench/internal/migration"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

type listRequest struct {
	SourceID string `json:"source_id"`
}

// RunList lists the source named in the body, or the first source
// connection when none is named.
func (s *Server) RunList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s.list(w, req.SourceID)
}

// RunConnectionList lists the connection in the URL.
func (s *Server) RunConnectionList(w http.ResponseWriter, r *http.Request) {
	s.list(w, chi.URLParam(r, "id"))
}

func (s *Server) list(w http.ResponseWriter, id string) {
	src := s.connection(id, "source")
	if src == nil {
		writeError(w, http.StatusNotFound, "source connection not found")
		return
	}
	job := s.startJob("list", false, func(ctx context.Context, svc *migration.Service) (interface{}, error) {
		return svc.List(ctx, src)
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// connection returns the connection with id, or the first one with role
// when id is empty.
func (s *Server) connection(id, role string) *models.Connection {
	if id != "" {
		return s.Connections.Get(id)
	}
	return s.Connections.ByRole(role)
}
