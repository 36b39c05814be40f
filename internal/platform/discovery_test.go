package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/scm-migration-workbench/internal/logger"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

func TestParseVersionResponse(t *testing.T) {
	resp, err := ParseVersionResponse([]byte(`{"version":"16.4.1-ee","revision":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, "16.4.1-ee", resp.Version)

	_, err = ParseVersionResponse([]byte(`{"revision":"abc"}`))
	assert.Error(t, err)

	_, err = ParseVersionResponse([]byte(`not json`))
	assert.Error(t, err)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"16.4.1", "16.4.2", -1},
		{"16.10.0", "16.9.0", 1},
		{"16.4.1-ee", "16.4.1", 0},
		{"1.0", "1.0.0", 0},
		{"1.0.1", "1.0", 1},
		{"2", "1.9.9", 1},
	}
	for _, tc := range tests {
		t.Run(tc.a+"_vs_"+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.want, CompareVersions(tc.a, tc.b))
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		version, min string
		want         bool
	}{
		{"16.4.0", "11.0", true},
		{"10.8.7", "11.0", false},
		{"", "1.0.0", true},
		{"1.0.0", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.version+"_gte_"+tc.min, func(t *testing.T) {
			assert.Equal(t, tc.want, VersionAtLeast(tc.version, tc.min))
		})
	}
}

func TestClient_Version_Unparseable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	resp, err := newTestClient(ts).Version(context.Background())
	require.NoError(t, err)
	assert.Empty(t, resp.Version)
}

func connFor(t *testing.T, ts *httptest.Server) *models.Connection {
	t.Helper()
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return &models.Connection{Name: "src", Scheme: "http", Host: u.Hostname(), Port: port, Token: "t"}
}

func TestDiscover(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  string
		version string
	}{
		{"ok", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, APIPrefix+"/version", r.URL.Path)
			w.Write([]byte(`{"version":"16.4.1"}`))
		}, "ok", "16.4.1"},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, "unauthorized", ""},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, "unreachable", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(tc.handler)
			defer ts.Close()

			store := models.NewConnectionStore()
			conn := connFor(t, ts)
			store.Create(conn)

			got := Discover(context.Background(), logger.Discard(), conn, store)
			assert.Equal(t, tc.status, got)
			stored := store.Get(conn.ID)
			assert.Equal(t, tc.status, stored.Status)
			assert.Equal(t, tc.version, stored.Version)
		})
	}
}
