package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/rflorenc/scm-migration-workbench/internal/logger"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
	"github.com/rflorenc/scm-migration-workbench/internal/stage"
	"github.com/rflorenc/scm-migration-workbench/internal/store"
)

// LoadListing reads the listed collections. Groups and projects must exist;
// a missing users collection reads as empty.
func (s *Service) LoadListing(ctx context.Context) (stage.Listing, error) {
	var l stage.Listing
	var err error
	if l.Groups, err = s.store.ListAll(ctx, store.Groups); err != nil {
		return l, fmt.Errorf("loading groups: %w", err)
	}
	if l.Projects, err = s.store.ListAll(ctx, store.Projects); err != nil {
		return l, fmt.Errorf("loading projects: %w", err)
	}
	l.Users, err = s.store.ListAll(ctx, store.Users)
	if errors.Is(err, store.ErrNoCollection) {
		l.Users, err = []models.Resource{}, nil
	}
	if err != nil {
		return l, fmt.Errorf("loading users: %w", err)
	}
	return l, nil
}

// Stage resolves the selection tokens against the listing and, unless this
// is a dry run, replaces the staged collections.
func (s *Service) Stage(ctx context.Context, tokens []string) (*models.StagedSet, error) {
	listing, err := s.LoadListing(ctx)
	if err != nil {
		return nil, err
	}
	r := stage.NewResolver(s.log, stage.Options{
		SourceType: s.opts.SourceType,
		DryRun:     s.opts.DryRun,
		Processes:  s.opts.Processes,
	})
	set, err := r.Resolve(ctx, tokens, listing)
	if err != nil {
		return nil, err
	}
	if s.opts.SkipUsers {
		set.Users = []models.Resource{}
	}
	groups, projects, users := set.Counts()
	prefix := logger.DryLog(s.opts.DryRun)
	s.log.Info(prefix+"staged selection", "groups", groups, "projects", projects, "users", users)
	if s.opts.DryRun {
		return set, nil
	}
	if err := store.WriteStaged(ctx, s.store, set, s.opts.SkipUsers); err != nil {
		return nil, fmt.Errorf("writing staged data: %w", err)
	}
	return set, nil
}

// Staged returns one staged collection: "groups", "projects" or "users".
func (s *Service) Staged(ctx context.Context, kind string) ([]models.Resource, error) {
	coll, ok := map[string]string{
		"groups":   store.StagedGroups,
		"projects": store.StagedProjects,
		"users":    store.StagedUsers,
	}[kind]
	if !ok {
		return nil, fmt.Errorf("unknown staged type %q", kind)
	}
	return s.store.ListAll(ctx, coll)
}
