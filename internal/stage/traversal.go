package stage

import (
	"github.com/rflorenc/scm-migration-workbench/internal/logger"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// traversal stages one selected group. Each traversal owns its output and
// memo sets so traversals can run concurrently over the shared index.
type traversal struct {
	r        *Resolver
	ix       *index
	dry      string
	out      models.StagedSet
	staged   map[models.ID]bool
	expanded map[models.ID]bool
	visiting map[models.ID]bool
}

func newTraversal(r *Resolver, ix *index) *traversal {
	return &traversal{
		r:        r,
		ix:       ix,
		dry:      logger.DryLog(r.opts.DryRun),
		staged:   make(map[models.ID]bool),
		expanded: make(map[models.ID]bool),
		visiting: make(map[models.ID]bool),
	}
}

// appendData stages g in the order: ancestors, own projects, descendants,
// own members, g itself.
func (t *traversal) appendData(g models.Group) error {
	if parent, ok := g.Parent(); ok {
		t.visiting[g.ID] = true
		err := t.addGroupAndParents(parent)
		delete(t.visiting, g.ID)
		if err != nil {
			return err
		}
	}
	t.expanded[g.ID] = true
	for _, pid := range g.Projects {
		t.stageProject(pid)
	}
	for _, did := range g.DescGroups {
		if err := t.stageDescendant(did); err != nil {
			return err
		}
	}
	t.flattenMembers(g.Members)
	t.appendGroup(g, "group")
	return nil
}

// addGroupAndParents stages id and its ancestors, root-most first. Ancestors
// missing from the listing are skipped with a warning. A chain that loops
// back on itself aborts staging.
func (t *traversal) addGroupAndParents(id models.ID) error {
	if t.staged[id] {
		return nil
	}
	g, ok := t.ix.group(id)
	if !ok {
		t.r.log.Warn(t.dry+"parent group not found in listing, skipping", "id", id)
		return nil
	}
	if t.visiting[g.ID] {
		t.r.log.Error(t.dry+"parent group chain loops", "id", g.ID)
		return parentCycle(string(g.ID))
	}
	if parent, ok := g.Parent(); ok {
		t.visiting[g.ID] = true
		err := t.addGroupAndParents(parent)
		delete(t.visiting, g.ID)
		if err != nil {
			return err
		}
	}
	t.appendGroup(g, "parent group")
	t.flattenMembers(g.Members)
	return nil
}

// stageDescendant stages a descendant with its projects, its own
// descendants and its members. A descendant absent from the listing aborts
// staging.
func (t *traversal) stageDescendant(id models.ID) error {
	if t.expanded[id] {
		return nil
	}
	d, ok := t.ix.group(id)
	if !ok {
		t.r.log.Error(t.dry+"descendant group not found in listing", "id", id)
		return missingDescendant(string(id))
	}
	t.expanded[id] = true
	for _, pid := range d.Projects {
		t.stageProject(pid)
	}
	for _, sub := range d.DescGroups {
		if err := t.stageDescendant(sub); err != nil {
			return err
		}
	}
	t.flattenMembers(d.Members)
	t.appendGroup(d, "sub-group")
	return nil
}

func (t *traversal) appendGroup(g models.Group, kind string) {
	t.r.log.Info(t.dry+"Staging "+kind, "full_path", g.FullPath, "id", g.ID)
	t.out.Groups = append(t.out.Groups, g.Raw.Clone())
	t.staged[g.ID] = true
}

func (t *traversal) stageProject(id models.ID) {
	raw, ok := t.ix.projects[id]
	if !ok {
		t.r.log.Warn(t.dry+"project not found in listing, skipping", "id", id)
		return
	}
	p := models.ProjectFrom(raw)
	t.flattenMembers(p.Members)
	t.r.log.Info(t.dry+"Staging project", "path_with_namespace", p.PathWithNamespace, "id", p.ID)
	t.out.Projects = append(t.out.Projects, raw.Clone())
}

// flattenMembers adds the user record behind each member to the staged
// users, falling back to the member entry when the user is not listed.
func (t *traversal) flattenMembers(members []models.Resource) {
	for _, m := range members {
		member := models.MemberFrom(m)
		if member.ID.IsZero() {
			t.r.log.Debug(t.dry+"member without id ignored", "member", m)
			continue
		}
		t.r.log.Debug(t.dry+"Staging user", "username", member.Username, "id", member.ID)
		if u, ok := t.ix.users[member.ID]; ok {
			t.out.Users = append(t.out.Users, u.Clone())
			continue
		}
		t.out.Users = append(t.out.Users, m.Clone())
	}
}
