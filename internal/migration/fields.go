package migration

import (
	"strings"

	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// Endpoint is one destination API call compared during verification.
type Endpoint struct {
	// Path is templated with ":id".
	Path        string
	Obfuscate   bool
	CriticalKey string
	// Count, when set, also records "Total Number of <Count>".
	Count string
}

// URL substitutes id into the endpoint path.
func (e Endpoint) URL(id models.ID) string {
	return strings.Replace(e.Path, ":id", id.String(), 1)
}

// ProjectEndpoints are compared for every staged project.
var ProjectEndpoints = []Endpoint{
	{Path: "/projects/:id", Obfuscate: true, CriticalKey: "path_with_namespace"},
	{Path: "/projects/:id/variables", Obfuscate: true, Count: "Project Variables"},
	{Path: "/projects/:id/members", Count: "Project Members"},
	{Path: "/projects/:id/labels", Count: "Project Labels"},
	{Path: "/projects/:id/milestones", Count: "Project Milestones"},
	{Path: "/projects/:id/protected_branches", Count: "Protected Branches"},
	{Path: "/projects/:id/hooks", Count: "Project Hooks"},
}

// GroupEndpoints are compared for every staged group.
var GroupEndpoints = []Endpoint{
	{Path: "/groups/:id", CriticalKey: "full_path"},
	{Path: "/groups/:id/variables", Obfuscate: true, Count: "Group Variables"},
	{Path: "/groups/:id/members", Count: "Group Members"},
	{Path: "/groups/:id/labels", Count: "Group Labels"},
	{Path: "/groups/:id/milestones", Count: "Group Milestones"},
}

// Keys that legitimately differ between instances.
var (
	projectKeysToIgnore = []string{
		"id", "web_url", "created_at", "updated_at", "last_activity_at",
		"http_url_to_repo", "ssh_url_to_repo", "readme_url", "avatar_url",
		"namespace", "name_with_namespace", "_links", "forks_count", "star_count", "open_issues_count",
		"import_status", "import_error", "creator_id", "project_id", "group_id",
		"runners_token", "container_registry_image_prefix", "empty_repo",
		"expires_at", "due_date", "start_date", "iid",
	}
	groupKeysToIgnore = []string{
		"id", "web_url", "created_at", "updated_at", "parent_id", "avatar_url",
		"runners_token", "projects", "shared_projects", "full_name",
		"ldap_cn", "ldap_access", "marked_for_deletion_on", "group_id", "iid",
		"expires_at", "due_date", "start_date",
	}
)

// kindPlan describes how one entity kind is verified.
type kindPlan struct {
	Kind       string
	Staged     string
	PathField  string
	Endpoints  []Endpoint
	IgnoreKeys []string
}

// destinationPath is the full path an entity lands at under the
// destination parent group.
func destinationPath(parentGroup, path string) string {
	parentGroup = strings.Trim(parentGroup, "/")
	path = strings.Trim(path, "/")
	if parentGroup == "" {
		return path
	}
	return parentGroup + "/" + path
}

// importOutcome classifies an import_results entry.
type importOutcome int

const (
	importMissing importOutcome = iota
	importAlreadyMigrated
	importCreated
)

// interpretImport reads an import_results record. A bare integer result
// means the import found the entity already present; an object with an id
// is a fresh import; anything else counts as missing.
func interpretImport(rec models.Resource) (importOutcome, models.ID) {
	if rec == nil {
		return importMissing, ""
	}
	result, ok := rec["result"]
	if !ok || result == nil {
		return importMissing, ""
	}
	if list, ok := result.([]interface{}); ok {
		if len(list) == 0 {
			return importMissing, ""
		}
		result = list[0]
	}
	if r, ok := models.AsResource(result); ok {
		if _, failed := r["error"]; failed {
			return importMissing, ""
		}
		if id := r.ID(); !id.IsZero() {
			return importCreated, id
		}
		return importMissing, ""
	}
	if _, isString := result.(string); isString {
		return importMissing, ""
	}
	if id := models.IDFrom(result); !id.IsZero() {
		if _, isInt := id.Int(); isInt {
			return importAlreadyMigrated, id
		}
	}
	return importMissing, ""
}
