package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rflorenc/scm-migration-workbench/internal/diff"
	"github.com/rflorenc/scm-migration-workbench/internal/migration"
)

type stageRequest struct {
	// Selection is the raw selection, e.g. "1,4" or "2-5" or "all".
	Selection string   `json:"selection"`
	Tokens    []string `json:"tokens"`
	DryRun    bool     `json:"dry_run"`
}

// RunStage starts a staging job.
func (s *Server) RunStage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	tokens := req.Tokens
	if strings.TrimSpace(req.Selection) != "" {
		tokens = append(tokens, req.Selection)
	}
	job := s.startJob("stage", req.DryRun, func(ctx context.Context, svc *migration.Service) (interface{}, error) {
		set, err := svc.Stage(ctx, tokens)
		if err != nil {
			return nil, err
		}
		g, p, u := set.Counts()
		return map[string]int{"staged_groups": g, "staged_projects": p, "staged_users": u}, nil
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

type diffRequest struct {
	SourceID      string   `json:"source_id"`
	DestinationID string   `json:"destination_id"`
	Kinds         []string `json:"kinds"`
}

// RunDiff starts a verification job over the staged entities.
func (s *Server) RunDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	src := s.connection(req.SourceID, "source")
	if src == nil {
		writeError(w, http.StatusNotFound, "source connection not found")
		return
	}
	dst := s.connection(req.DestinationID, "destination")
	if dst == nil {
		writeError(w, http.StatusNotFound, "destination connection not found")
		return
	}
	job := s.startJob("diff", false, func(ctx context.Context, svc *migration.Service) (interface{}, error) {
		reports, err := svc.Verify(ctx, src, dst, req.Kinds...)
		if err != nil {
			return nil, err
		}
		out := make(map[string]diff.StageAccuracy, len(reports))
		for _, rep := range reports {
			out[rep.SummaryKey()] = rep.Summary
		}
		return out, nil
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}
