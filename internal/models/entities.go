package models

// Group is the typed view of a listed group record.
type Group struct {
	ID         ID
	FullPath   string
	ParentID   *ID
	DescGroups []ID
	Projects   []ID
	Members    []Resource
	Raw        Resource
}

// Parent returns the parent group id, if the group has one.
func (g Group) Parent() (ID, bool) {
	if g.ParentID == nil || g.ParentID.IsZero() {
		return "", false
	}
	return *g.ParentID, true
}

// GroupFrom parses a listed group record. desc_groups and projects may hold
// either bare ids or embedded objects carrying an "id".
func GroupFrom(r Resource) Group {
	g := Group{
		ID:         r.ID(),
		FullPath:   r.String("full_path"),
		DescGroups: idList(r.Slice("desc_groups")),
		Projects:   idList(r.Slice("projects")),
		Members:    resourceList(r.Slice("members")),
		Raw:        r,
	}
	if p := IDFrom(r["parent_id"]); !p.IsZero() {
		g.ParentID = &p
	}
	return g
}

// Project is the typed view of a listed project record.
type Project struct {
	ID                ID
	PathWithNamespace string
	Members           []Resource
	Raw               Resource
}

// ProjectFrom parses a listed project record.
func ProjectFrom(r Resource) Project {
	return Project{
		ID:                r.ID(),
		PathWithNamespace: r.String("path_with_namespace"),
		Members:           resourceList(r.Slice("members")),
		Raw:               r,
	}
}

// Member is the typed view of a group or project membership entry.
type Member struct {
	ID          ID
	Username    string
	AccessLevel int
	Raw         Resource
}

// MemberFrom parses a membership record.
func MemberFrom(r Resource) Member {
	return Member{
		ID:          r.ID(),
		Username:    r.String("username"),
		AccessLevel: r.Int("access_level"),
		Raw:         r,
	}
}

// StagedSet is the output of staging: the three deduplicated sequences that
// get persisted to the staged_* collections.
type StagedSet struct {
	Groups   []Resource `json:"staged_groups"`
	Projects []Resource `json:"staged_projects"`
	Users    []Resource `json:"staged_users"`
}

// Counts returns the number of staged groups, projects and users.
func (s *StagedSet) Counts() (groups, projects, users int) {
	return len(s.Groups), len(s.Projects), len(s.Users)
}

func idList(items []interface{}) []ID {
	out := make([]ID, 0, len(items))
	for _, it := range items {
		if id := IDFrom(it); !id.IsZero() {
			out = append(out, id)
		}
	}
	return out
}

func resourceList(items []interface{}) []Resource {
	out := make([]Resource, 0, len(items))
	for _, it := range items {
		if r, ok := AsResource(it); ok {
			out = append(out, r)
		}
	}
	return out
}

// IndexByID builds an id → record map. The first record wins on duplicates.
func IndexByID(records []Resource) map[ID]Resource {
	idx := make(map[ID]Resource, len(records))
	for _, r := range records {
		id := r.ID()
		if _, seen := idx[id]; !seen {
			idx[id] = r
		}
	}
	return idx
}
