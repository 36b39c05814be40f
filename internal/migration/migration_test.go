package migration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/scm-migration-workbench/internal/diff"
	"github.com/rflorenc/scm-migration-workbench/internal/logger"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
	"github.com/rflorenc/scm-migration-workbench/internal/platform"
	"github.com/rflorenc/scm-migration-workbench/internal/store"
)

func newService(t *testing.T, opts Options) (*Service, *store.FileStore) {
	t.Helper()
	fs, err := store.NewFileStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return New(fs, logger.Discard(), opts), fs
}

// gitlab serves canned bodies under the REST prefix; anything else is a 404.
func gitlab(t *testing.T, routes map[string]string) (*httptest.Server, *models.Connection) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, platform.APIPrefix)
		if body, ok := routes[path]; ok {
			w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"404 Not Found"}`))
	}))
	t.Cleanup(ts.Close)
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return ts, &models.Connection{Name: "fake", Type: "gitlab", Scheme: "http", Host: u.Hostname(), Port: port, Token: "t"}
}

func seedListing(t *testing.T, fs *store.FileStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, fs.Write(ctx, store.Groups, []models.Resource{
		{"id": float64(1), "full_path": "top", "parent_id": nil, "desc_groups": []interface{}{float64(2)}, "projects": []interface{}{float64(10)},
			"members": []interface{}{map[string]interface{}{"id": float64(100), "username": "alice"}}},
		{"id": float64(2), "full_path": "top/sub", "parent_id": float64(1), "desc_groups": []interface{}{}, "projects": []interface{}{float64(11)}, "members": []interface{}{}},
		{"id": float64(3), "full_path": "other", "parent_id": nil, "desc_groups": []interface{}{}, "projects": []interface{}{}, "members": []interface{}{}},
	}))
	require.NoError(t, fs.Write(ctx, store.Projects, []models.Resource{
		{"id": float64(10), "path_with_namespace": "top/app", "members": []interface{}{}},
		{"id": float64(11), "path_with_namespace": "top/sub/lib", "members": []interface{}{}},
	}))
	require.NoError(t, fs.Write(ctx, store.Users, []models.Resource{
		{"id": float64(100), "username": "alice"},
	}))
}

func paths(records []models.Resource, field string) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.String(field))
	}
	return out
}

func TestService_Stage(t *testing.T) {
	svc, fs := newService(t, Options{Processes: 2})
	seedListing(t, fs)
	ctx := context.Background()

	set, err := svc.Stage(ctx, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"top", "top/sub"}, paths(set.Groups, "full_path"))
	assert.Equal(t, []string{"top/app", "top/sub/lib"}, paths(set.Projects, "path_with_namespace"))
	assert.Equal(t, []string{"alice"}, paths(set.Users, "username"))

	staged, err := svc.Staged(ctx, "groups")
	require.NoError(t, err)
	assert.Len(t, staged, 2)

	_, err = svc.Staged(ctx, "runners")
	assert.Error(t, err)
}

func TestService_Stage_DryRunWritesNothing(t *testing.T) {
	svc, fs := newService(t, Options{DryRun: true})
	seedListing(t, fs)
	ctx := context.Background()

	set, err := svc.Stage(ctx, []string{"all"})
	require.NoError(t, err)
	assert.Len(t, set.Groups, 3)

	_, err = svc.Staged(ctx, "groups")
	assert.ErrorIs(t, err, store.ErrNoCollection)
}

func TestService_Stage_SkipUsers(t *testing.T) {
	svc, fs := newService(t, Options{SkipUsers: true})
	seedListing(t, fs)
	ctx := context.Background()

	set, err := svc.Stage(ctx, []string{"1"})
	require.NoError(t, err)
	assert.Empty(t, set.Users)

	users, err := svc.Staged(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestService_Stage_NoListing(t *testing.T) {
	svc, _ := newService(t, Options{})
	_, err := svc.Stage(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, store.ErrNoCollection)
}

func TestService_List(t *testing.T) {
	_, src := gitlab(t, map[string]string{
		"/groups":             `[{"id":1,"full_path":"top","parent_id":null}]`,
		"/groups/1/subgroups": `[]`,
		"/groups/1/projects":  `[{"id":10,"path_with_namespace":"top/app"}]`,
		"/groups/1/members":   `[]`,
		"/projects/10/members": `[{"id":100,"username":"alice"}]`,
		"/users":              `[{"id":100,"username":"alice"}]`,
	})
	svc, fs := newService(t, Options{SourceType: "gitlab"})
	ctx := context.Background()

	sum, err := svc.List(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, &ListSummary{Groups: 1, Projects: 1, Users: 1}, sum)

	groups, err := fs.ListAll(ctx, store.Groups)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []models.ID{"10"}, models.GroupFrom(groups[0]).Projects)
}

func TestService_List_NoSource(t *testing.T) {
	svc, _ := newService(t, Options{})
	_, err := svc.List(context.Background(), nil)
	assert.Error(t, err)
}

func TestService_Verify(t *testing.T) {
	_, src := gitlab(t, map[string]string{
		"/projects/10":                    `{"id":10,"name":"app","path_with_namespace":"top/app","description":"d","visibility":"private"}`,
		"/projects/10/variables":          `[{"key":"TOKEN","value":"s3cret"}]`,
		"/projects/10/members":            `[{"id":100,"username":"alice","access_level":40}]`,
		"/projects/10/labels":             `[{"name":"bug","color":"#ff0000"}]`,
		"/projects/10/milestones":         `[]`,
		"/projects/10/protected_branches": `[{"name":"main"}]`,
		"/projects/10/hooks":              `[]`,
		"/groups/1":                       `{"id":1,"full_path":"top","name":"top","visibility":"private"}`,
		"/groups/1/variables":             `[]`,
		"/groups/1/members":               `[{"id":100,"username":"alice","access_level":50}]`,
		"/groups/1/labels":                `[]`,
		"/groups/1/milestones":            `[]`,
	})
	_, dst := gitlab(t, map[string]string{
		"/projects/510":                    `{"id":510,"name":"app","path_with_namespace":"imported/top/app","description":"d","visibility":"private"}`,
		"/projects/510/variables":          `[{"key":"TOKEN","value":"s3cret"}]`,
		"/projects/510/members":            `[{"id":900,"username":"alice","access_level":40}]`,
		"/projects/510/labels":             `[{"name":"bug","color":"#ff0000"}]`,
		"/projects/510/milestones":         `[]`,
		"/projects/510/protected_branches": `[{"name":"main"}]`,
		"/projects/510/hooks":              `[]`,
		"/groups/601":                      `{"id":601,"full_path":"imported/top","name":"top","visibility":"private"}`,
		"/groups/601/variables":            `[]`,
		"/groups/601/members":              `[{"id":900,"username":"alice","access_level":50}]`,
		"/groups/601/labels":               `[]`,
		"/groups/601/milestones":           `[]`,
	})
	dst.ParentGroupPath = "imported"

	resultsDir := filepath.Join(t.TempDir(), "results")
	svc, fs := newService(t, Options{Processes: 2, ResultsDir: resultsDir, StrictCounts: true})
	seedListing(t, fs)
	ctx := context.Background()

	_, err := svc.Stage(ctx, []string{"1"})
	require.NoError(t, err)
	require.NoError(t, fs.Write(ctx, store.ImportResults, []models.Resource{
		{"id": "imported/top/app", "result": map[string]interface{}{"id": float64(510)}},
		{"id": "imported/top/sub/lib", "result": float64(77)},
		{"id": "imported/top", "result": map[string]interface{}{"id": float64(601)}},
	}))

	reports, err := svc.Verify(ctx, src, dst)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	projects := reports[0]
	assert.Equal(t, KindProject, projects.Kind)
	require.Len(t, projects.Entities, 2)

	app := projects.Entities["top/app"]
	require.NotNil(t, app)
	assert.Empty(t, app.Error)
	assert.Equal(t, diff.Success, app.Overall.Result)
	assert.Greater(t, app.Endpoints["/projects/:id"].Accuracy, 0.0, "parent group prefix is accepted")
	assert.Equal(t, 1.0, app.Endpoints["/projects/:id/variables"].Accuracy)
	assert.Equal(t, 1.0, app.Endpoints["/projects/:id/members"].Accuracy, "ids are ignored")
	assert.Equal(t, diff.Count{Source: 1, Destination: 1}, app.Counts["Total Number of Project Labels"])
	assert.Equal(t, 1.0, app.Endpoints["Number of Project Labels"].Accuracy)

	lib := projects.Entities["top/sub/lib"]
	require.NotNil(t, lib)
	assert.Equal(t, "project already migrated", lib.Info)
	assert.Equal(t, diff.Unknown, lib.Overall.Result)

	groups := reports[1]
	assert.Equal(t, KindGroup, groups.Kind)
	top := groups.Entities["top"]
	require.NotNil(t, top)
	assert.Empty(t, top.Error)
	assert.Greater(t, top.Endpoints["/groups/:id"].Accuracy, 0.0)

	sub := groups.Entities["top/sub"]
	require.NotNil(t, sub)
	assert.Equal(t, "group missing", sub.Error)
	assert.Equal(t, diff.Failure, sub.Overall.Result)
	assert.Equal(t, diff.Failure, groups.Summary.Result)

	for _, kind := range Kinds {
		_, err := os.Stat(filepath.Join(resultsDir, kind+"_diff.html"))
		assert.NoError(t, err)
	}

	back, err := svc.Report(ctx, KindGroup)
	require.NoError(t, err)
	assert.Len(t, back.Entities, 2)
	assert.Equal(t, groups.Summary, back.Summary)
}

func TestService_Verify_WrongCriticalKey(t *testing.T) {
	_, src := gitlab(t, map[string]string{
		"/groups/1": `{"id":1,"full_path":"top","name":"top"}`,
	})
	_, dst := gitlab(t, map[string]string{
		"/groups/601": `{"id":601,"full_path":"elsewhere/top","name":"top"}`,
	})
	dst.ParentGroupPath = "imported"

	svc, fs := newService(t, Options{})
	ctx := context.Background()
	require.NoError(t, fs.Write(ctx, store.StagedGroups, []models.Resource{
		{"id": float64(1), "full_path": "top", "parent_id": nil},
	}))
	require.NoError(t, fs.Write(ctx, store.ImportResults, []models.Resource{
		{"id": "imported/top", "result": map[string]interface{}{"id": float64(601)}},
	}))

	reports, err := svc.Verify(ctx, src, dst, KindGroup)
	require.NoError(t, err)
	top := reports[0].Entities["top"]
	assert.Equal(t, 0.0, top.Endpoints["/groups/:id"].Accuracy)
	assert.Equal(t, diff.Accuracy{Accuracy: 0, Result: diff.Failure}, top.Overall)
}

func TestService_Verify_UnknownKind(t *testing.T) {
	_, src := gitlab(t, nil)
	svc, _ := newService(t, Options{})
	_, err := svc.Verify(context.Background(), src, src, "pipeline")
	assert.Error(t, err)
}
