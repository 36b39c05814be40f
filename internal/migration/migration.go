// Package migration drives the workbench stages: listing a source instance
// into the store, staging a selection of groups, and verifying what the
// import produced on the destination.
package migration

import (
	"log/slog"
	"path/filepath"

	"github.com/rflorenc/scm-migration-workbench/internal/diff"
	"github.com/rflorenc/scm-migration-workbench/internal/store"
)

// Options configure a Service.
type Options struct {
	SourceType   string
	Processes    int
	DryRun       bool
	SkipUsers    bool
	ExcludePaths []string
	// KeysToIgnore replaces the per-kind defaults when non-empty.
	KeysToIgnore []string
	StrictCounts bool
	// ResultsDir receives the rendered HTML reports. Empty disables rendering.
	ResultsDir string
}

// Service runs the workbench stages against one store.
type Service struct {
	store  store.Store
	log    *slog.Logger
	opts   Options
	scorer *diff.Scorer
}

// New creates a Service.
func New(st store.Store, log *slog.Logger, opts Options) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.Processes < 1 {
		opts.Processes = 1
	}
	return &Service{store: st, log: log, opts: opts, scorer: diff.NewScorer(log)}
}

// WithLogger returns a copy of s logging to log. Jobs use it to capture
// their own output.
func (s *Service) WithLogger(log *slog.Logger) *Service {
	cp := *s
	cp.log = log
	cp.scorer = diff.NewScorer(log)
	return &cp
}

// WithDryRun returns a copy of s with the dry-run flag set.
func (s *Service) WithDryRun(dry bool) *Service {
	cp := *s
	cp.opts.DryRun = dry
	return &cp
}

// Options returns the options s was created with.
func (s *Service) Options() Options { return s.opts }

// HTMLPath is where the rendered report of kind is written.
func (s *Service) HTMLPath(kind string) string {
	if s.opts.ResultsDir == "" {
		return ""
	}
	return filepath.Join(s.opts.ResultsDir, kind+"_diff.html")
}
