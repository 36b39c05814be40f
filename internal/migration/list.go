package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/rflorenc/scm-migration-workbench/internal/exitcode"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
	"github.com/rflorenc/scm-migration-workbench/internal/platform"
	"github.com/rflorenc/scm-migration-workbench/internal/store"
)

// ListSummary counts what a listing wrote.
type ListSummary struct {
	Groups   int `json:"groups"`
	Projects int `json:"projects"`
	Users    int `json:"users"`
}

// List walks the source connection and overwrites the groups, projects and
// users collections.
func (s *Service) List(ctx context.Context, src *models.Connection) (*ListSummary, error) {
	if src == nil {
		return nil, exitcode.Wrap(exitcode.Config, errors.New("no source connection configured"))
	}
	lister := platform.NewLister(platform.NewClient(src), s.log, platform.ListerOptions{
		SourceType:   s.opts.SourceType,
		Processes:    s.opts.Processes,
		ExcludePaths: s.opts.ExcludePaths,
		SkipUsers:    s.opts.SkipUsers,
	})
	s.log.Info("listing source", "connection", src.Name, "url", src.BaseURL())
	inv, err := lister.List(ctx)
	if errors.Is(err, platform.ErrUnsupportedSource) {
		return nil, exitcode.Wrap(exitcode.Config, err)
	}
	if err != nil {
		return nil, exitcode.Wrap(exitcode.IOErr, fmt.Errorf("listing %s: %w", src.Name, err))
	}

	for _, c := range []struct {
		name    string
		records []models.Resource
	}{
		{store.Groups, inv.Groups},
		{store.Projects, inv.Projects},
		{store.Users, inv.Users},
	} {
		if err := s.store.Write(ctx, c.name, c.records); err != nil {
			return nil, fmt.Errorf("writing %s: %w", c.name, err)
		}
	}
	return &ListSummary{Groups: len(inv.Groups), Projects: len(inv.Projects), Users: len(inv.Users)}, nil
}
