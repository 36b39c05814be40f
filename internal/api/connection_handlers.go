package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/scm-migration-workbench/internal/models"
	"github.com/rflorenc/scm-migration-workbench/internal/platform"
)

func (s *Server) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var conn models.Connection
	if err := json.NewDecoder(r.Body).Decode(&conn); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if conn.Host == "" {
		writeError(w, http.StatusBadRequest, "host is required")
		return
	}
	conn.Type = strings.ToLower(conn.Type)
	if conn.Type == "" {
		conn.Type = "gitlab"
	}
	switch conn.Role {
	case "":
		conn.Role = "source"
	case "source", "destination":
	default:
		writeError(w, http.StatusBadRequest, "role must be source or destination")
		return
	}
	if conn.Scheme == "" {
		conn.Scheme = "https"
	}
	if conn.Port == 0 {
		if conn.Scheme == "https" {
			conn.Port = 443
		} else {
			conn.Port = 80
		}
	}
	conn.ParentGroupPath = strings.Trim(conn.ParentGroupPath, "/")
	conn.Status = ""
	s.Connections.Create(&conn)
	writeJSON(w, http.StatusCreated, conn.Redacted())
}

func (s *Server) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns := s.Connections.List()
	out := make([]models.Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Redacted())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var conn models.Connection
	if err := json.NewDecoder(r.Body).Decode(&conn); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	conn.ID = id
	if !s.Connections.Update(&conn) {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	writeJSON(w, http.StatusOK, s.Connections.Get(id).Redacted())
}

func (s *Server) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.Connections.Delete(id) {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) TestConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn := s.Connections.Get(id)
	if conn == nil {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	status := platform.Discover(r.Context(), s.logger(), conn, s.Connections)
	updated := s.Connections.Get(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      status == "ok",
		"status":  status,
		"version": updated.Version,
	})
}
