// Package stage resolves a user selection of groups into the complete set of
// groups, projects and users that must be migrated together.
package stage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rflorenc/scm-migration-workbench/internal/logger"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// Listing is the full listed forest the selection is resolved against.
type Listing struct {
	Groups   []models.Resource
	Projects []models.Resource
	Users    []models.Resource
}

// Options configure a Resolver.
type Options struct {
	SourceType string
	DryRun     bool
	// Processes bounds how many selected groups are traversed at once.
	Processes int
}

// Resolver turns selections into staged sets.
type Resolver struct {
	log  *slog.Logger
	opts Options
}

// NewResolver returns a Resolver that logs to log.
func NewResolver(log *slog.Logger, opts Options) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	if opts.Processes < 1 {
		opts.Processes = 1
	}
	return &Resolver{log: log, opts: opts}
}

// index holds read-only lookups shared by every traversal.
type index struct {
	groups   map[models.ID]models.Resource
	projects map[models.ID]models.Resource
	users    map[models.ID]models.Resource
	// folded maps lower-cased group ids for UUID sources, whose ids may
	// differ in case between selection and listing.
	folded map[string]models.Resource
}

func newIndex(l Listing, sourceType string) *index {
	ix := &index{
		groups:   models.IndexByID(l.Groups),
		projects: models.IndexByID(l.Projects),
		users:    models.IndexByID(l.Users),
	}
	if strings.EqualFold(sourceType, SourceAzureDevOps) {
		ix.folded = make(map[string]models.Resource, len(ix.groups))
		for k, v := range ix.groups {
			ix.folded[strings.ToLower(string(k))] = v
		}
	}
	return ix
}

func (ix *index) group(id models.ID) (models.Group, bool) {
	if r, ok := ix.groups[id]; ok {
		return models.GroupFrom(r), true
	}
	if r, ok := ix.folded[strings.ToLower(string(id))]; ok {
		return models.GroupFrom(r), true
	}
	return models.Group{}, false
}

// Resolve stages the groups named by the selection tokens together with
// their ancestors, descendants, projects and members.
func (r *Resolver) Resolve(ctx context.Context, tokens []string, listing Listing) (*models.StagedSet, error) {
	sel, err := ParseSelection(tokens, r.opts.SourceType)
	if err != nil {
		r.log.Error("invalid selection", "error", err)
		return nil, err
	}
	return r.ResolveSelection(ctx, sel, listing)
}

// ResolveSelection stages an already parsed selection.
func (r *Resolver) ResolveSelection(ctx context.Context, sel Selection, listing Listing) (*models.StagedSet, error) {
	dry := logger.DryLog(r.opts.DryRun)
	switch {
	case sel.IsEmpty():
		r.log.Info(dry + "empty selection, nothing to stage")
		return &models.StagedSet{Groups: []models.Resource{}, Projects: []models.Resource{}, Users: []models.Resource{}}, nil
	case sel.IsAll():
		r.log.Info(dry+"staging everything listed",
			"groups", len(listing.Groups), "projects", len(listing.Projects), "users", len(listing.Users))
		return finalize(&models.StagedSet{
			Groups:   cloneAll(listing.Groups),
			Projects: cloneAll(listing.Projects),
			Users:    cloneAll(listing.Users),
		}), nil
	}

	ix := newIndex(listing, r.opts.SourceType)
	roots, err := r.selectedGroups(sel, listing, ix)
	if err != nil {
		return nil, err
	}

	parts := make([]*models.StagedSet, len(roots))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Processes)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t := newTraversal(r, ix)
			if err := t.appendData(root); err != nil {
				return err
			}
			parts[i] = &t.out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.log.Error(dry+"staging aborted", "error", err)
		return nil, err
	}

	merged := &models.StagedSet{}
	for _, p := range parts {
		merged.Groups = append(merged.Groups, p.Groups...)
		merged.Projects = append(merged.Projects, p.Projects...)
		merged.Users = append(merged.Users, p.Users...)
	}
	out := finalize(merged)
	ng, np, nu := out.Counts()
	r.log.Info(dry+"staging complete", "groups", ng, "projects", np, "users", nu)
	return out, nil
}

func (r *Resolver) selectedGroups(sel Selection, listing Listing, ix *index) ([]models.Group, error) {
	if sel.kind == selectRange {
		start, end := sel.start, sel.end
		if start >= len(listing.Groups) {
			r.log.Error("selection range starts past the listed groups",
				"range", sel.raw[0], "listed", len(listing.Groups))
			return nil, malformed(sel.raw[0], fmt.Errorf("range starts past %d listed groups", len(listing.Groups)))
		}
		if end > len(listing.Groups) {
			r.log.Warn("selection range exceeds listed groups, clamping",
				"range", sel.raw[0], "listed", len(listing.Groups))
			end = len(listing.Groups)
		}
		var roots []models.Group
		for i := start; i < end; i++ {
			roots = append(roots, models.GroupFrom(listing.Groups[i]))
		}
		return roots, nil
	}

	roots := make([]models.Group, 0, len(sel.ids))
	for _, id := range sel.ids {
		g, ok := ix.group(id)
		if !ok {
			r.log.Error("selected group is not listed", "id", id)
			return nil, unknownGroup(string(id))
		}
		roots = append(roots, g)
	}
	return roots, nil
}

func cloneAll(in []models.Resource) []models.Resource {
	out := make([]models.Resource, 0, len(in))
	for _, r := range in {
		out = append(out, r.Clone())
	}
	return out
}

// finalize deduplicates every sequence and puts groups in parent-first order.
func finalize(s *models.StagedSet) *models.StagedSet {
	return &models.StagedSet{
		Groups:   ParentsFirst(RemoveDupes(s.Groups)),
		Projects: RemoveDupes(s.Projects),
		Users:    RemoveDupes(s.Users),
	}
}

// RemoveDupes drops records whose id was already seen. The first record with
// a given id wins and keeps its position.
func RemoveDupes(in []models.Resource) []models.Resource {
	seen := make(map[models.ID]bool, len(in))
	out := make([]models.Resource, 0, len(in))
	for _, r := range in {
		id := r.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, r)
	}
	return out
}

// ParentsFirst reorders groups so every group appears after its parent when
// the parent is part of the same set. Relative order is kept otherwise.
func ParentsFirst(groups []models.Resource) []models.Resource {
	byID := make(map[models.ID]models.Resource, len(groups))
	for _, g := range groups {
		byID[g.ID()] = g
	}
	emitted := make(map[models.ID]bool, len(groups))
	visiting := make(map[models.ID]bool)
	out := make([]models.Resource, 0, len(groups))

	var emit func(g models.Resource)
	emit = func(g models.Resource) {
		id := g.ID()
		if emitted[id] || visiting[id] {
			return
		}
		visiting[id] = true
		if parent, ok := models.GroupFrom(g).Parent(); ok {
			if p, listed := byID[parent]; listed {
				emit(p)
			}
		}
		visiting[id] = false
		emitted[id] = true
		out = append(out, g)
	}
	for _, g := range groups {
		emit(g)
	}
	return out
}
