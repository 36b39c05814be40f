package api

import (
	"net/http"
)

// GetExclusions returns the listing excludes and the keys ignored when
// comparing each kind.
func (s *Server) GetExclusions(w http.ResponseWriter, r *http.Request) {
	opts := s.Service.Options()
	exclude := opts.ExcludePaths
	if exclude == nil {
		exclude = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"exclude_paths":  exclude,
		"keys_to_ignore": s.Service.KeysToIgnore(),
	})
}
