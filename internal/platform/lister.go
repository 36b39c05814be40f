package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// ErrUnsupportedSource is returned when listing a source type the lister
// cannot walk.
var ErrUnsupportedSource = errors.New("unsupported source type")

// ListerOptions tunes a source walk.
type ListerOptions struct {
	SourceType   string
	Processes    int
	ExcludePaths []string
	SkipUsers    bool
}

// Inventory is the raw listing of a source instance.
type Inventory struct {
	Groups   []models.Resource
	Projects []models.Resource
	Users    []models.Resource
}

// Lister walks a source instance and builds an Inventory.
type Lister struct {
	client *Client
	log    *slog.Logger
	opts   ListerOptions
}

// NewLister creates a Lister over client.
func NewLister(client *Client, log *slog.Logger, opts ListerOptions) *Lister {
	if opts.Processes < 1 {
		opts.Processes = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Lister{client: client, log: log, opts: opts}
}

// Excluded reports whether path matches any of the exclude globs.
func Excluded(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}

type walkResult struct {
	groups   []models.Resource
	projects []models.Resource
}

// List walks every top-level group in parallel, then lists users.
func (l *Lister) List(ctx context.Context) (*Inventory, error) {
	switch strings.ToLower(l.opts.SourceType) {
	case "", "gitlab":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, l.opts.SourceType)
	}

	roots, err := l.client.GetAll(ctx, "/groups", url.Values{"top_level_only": {"true"}, "all_available": {"true"}})
	if err != nil {
		return nil, fmt.Errorf("listing top-level groups: %w", err)
	}
	l.log.Info("listing groups", "top_level", len(roots))

	results := make([]walkResult, len(roots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Processes)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			res := &results[i]
			return l.walkGroup(gctx, root, res, map[models.ID]bool{})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inv := &Inventory{Groups: []models.Resource{}, Projects: []models.Resource{}, Users: []models.Resource{}}
	seenProjects := make(map[models.ID]bool)
	for _, r := range results {
		inv.Groups = append(inv.Groups, r.groups...)
		for _, p := range r.projects {
			if seenProjects[p.ID()] {
				continue
			}
			seenProjects[p.ID()] = true
			inv.Projects = append(inv.Projects, p)
		}
	}

	if !l.opts.SkipUsers {
		users, err := l.client.GetAll(ctx, "/users", url.Values{"active": {"true"}})
		if err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}
		inv.Users = users
	}
	l.log.Info("listing complete", "groups", len(inv.Groups), "projects", len(inv.Projects), "users", len(inv.Users))
	return inv, nil
}

func (l *Lister) walkGroup(ctx context.Context, group models.Resource, res *walkResult, seen map[models.ID]bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := group.ID()
	fullPath := group.String("full_path")
	if seen[id] {
		return nil
	}
	seen[id] = true
	if Excluded(l.opts.ExcludePaths, fullPath) {
		l.log.Info("excluded group", "full_path", fullPath)
		return nil
	}

	subgroups, err := l.client.GetAll(ctx, "/groups/"+id.String()+"/subgroups", url.Values{"all_available": {"true"}})
	if err != nil {
		return fmt.Errorf("listing subgroups of %s: %w", fullPath, err)
	}
	projects, err := l.client.GetAll(ctx, "/groups/"+id.String()+"/projects", nil)
	if err != nil {
		return fmt.Errorf("listing projects of %s: %w", fullPath, err)
	}
	members, err := l.client.GetAll(ctx, "/groups/"+id.String()+"/members", nil)
	if err != nil {
		return fmt.Errorf("listing members of %s: %w", fullPath, err)
	}

	var descIDs, projectIDs []interface{}
	for _, sg := range subgroups {
		if Excluded(l.opts.ExcludePaths, sg.String("full_path")) {
			continue
		}
		descIDs = append(descIDs, idValue(sg.ID()))
	}
	for _, p := range projects {
		path := p.String("path_with_namespace")
		if Excluded(l.opts.ExcludePaths, path) {
			l.log.Info("excluded project", "path_with_namespace", path)
			continue
		}
		pm, err := l.client.GetAll(ctx, "/projects/"+p.ID().String()+"/members", nil)
		if err != nil {
			return fmt.Errorf("listing members of %s: %w", path, err)
		}
		rec := p.Clone()
		rec["members"] = resourcesToValues(pm)
		res.projects = append(res.projects, rec)
		projectIDs = append(projectIDs, idValue(p.ID()))
	}

	rec := group.Clone()
	rec["desc_groups"] = nonNil(descIDs)
	rec["projects"] = nonNil(projectIDs)
	rec["members"] = resourcesToValues(members)
	res.groups = append(res.groups, rec)
	l.log.Debug("listed group", "full_path", fullPath, "subgroups", len(descIDs), "projects", len(projectIDs), "members", len(members))

	for _, sg := range subgroups {
		if err := l.walkGroup(ctx, sg, res, seen); err != nil {
			return err
		}
	}
	return nil
}

// idValue keeps integer ids numeric in the stored records.
func idValue(id models.ID) interface{} {
	if n, ok := id.Int(); ok {
		return n
	}
	return id.String()
}

func resourcesToValues(in []models.Resource) []interface{} {
	out := make([]interface{}, 0, len(in))
	for _, r := range in {
		out = append(out, map[string]interface{}(r))
	}
	return out
}

func nonNil(in []interface{}) []interface{} {
	if in == nil {
		return []interface{}{}
	}
	return in
}
