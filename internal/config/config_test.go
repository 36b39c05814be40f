package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/scm-migration-workbench/internal/exitcode"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Listen)
	assert.Equal(t, "./data", c.DataDir)
	assert.Equal(t, "gitlab", c.SourceType)
	assert.Equal(t, "file", c.Store.Backend)
	assert.GreaterOrEqual(t, c.Processes, 1)
	assert.Zero(t, c.Timeout())
	require.NoError(t, c.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
processes: 3
job_timeout: 600
source_type: "Azure DevOps"
store:
  backend: mongo
  mongo_uri: mongodb://db:27017
list:
  exclude_paths: ["archive/**"]
diff:
  keys_to_ignore: [id, web_url]
connections:
  - name: src
    role: source
    host: gitlab.old.example.com
    token: glpat-abc
  - name: dst
    role: destination
    scheme: http
    host: gitlab.new.example.com
    parent_group_path: /imported/
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, ":9090", c.Listen)
	assert.Equal(t, 3, c.Processes)
	assert.Equal(t, "azure devops", c.SourceType)
	assert.Equal(t, "mongo", c.Store.Backend)
	assert.Equal(t, "workbench", c.Store.Database, "unset nested values keep defaults")
	assert.Equal(t, []string{"archive/**"}, c.List.ExcludePaths)
	assert.Equal(t, 600, int(c.Timeout().Seconds()))
	require.Len(t, c.Connections, 2)

	src := c.Connections[0].ToConnection()
	assert.Equal(t, "gitlab", src.Type)
	assert.Equal(t, "https", src.Scheme)
	assert.Equal(t, 443, src.Port)

	dst := c.Connections[1].ToConnection()
	assert.Equal(t, 80, dst.Port)
	assert.Equal(t, "imported", dst.ParentGroupPath)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, exitcode.Config, exitcode.FromError(err))

	_, err = Load(writeConfig(t, "listen: [unterminated"))
	assert.Equal(t, exitcode.Config, exitcode.FromError(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown source", func(c *Config) { c.SourceType = "svn" }, false},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, false},
		{"negative timeout", func(c *Config) { c.JobTimeout = -1 }, false},
		{"bad role", func(c *Config) { c.Connections = []ConnectionConfig{{Name: "x", Role: "mirror"}} }, false},
		{"zero processes clamps", func(c *Config) { c.Processes = 0 }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Equal(t, exitcode.Config, exitcode.FromError(err))
			}
		})
	}
}

func TestOverlay(t *testing.T) {
	c := Default()
	c.Listen = ":9000"

	v := viper.New()
	v.Set("processes", 7)
	v.Set("store.backend", "mongo")
	c.Overlay(v)

	assert.Equal(t, ":9000", c.Listen, "unset keys keep file values")
	assert.Equal(t, 7, c.Processes)
	assert.Equal(t, "mongo", c.Store.Backend)
}

func TestOverlay_Env(t *testing.T) {
	t.Setenv("WORKBENCH_DATA_DIR", "/srv/workbench")
	v := NewViper()
	c := Default()
	c.Overlay(v)
	assert.Equal(t, "/srv/workbench", c.DataDir)
}
