package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rflorenc/scm-migration-workbench/internal/exitcode"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// Supported source types.
var SourceTypes = []string{
	"gitlab",
	"github",
	"bitbucket server",
	"azure devops",
	"jenkins",
	"teamcity",
}

// ConnectionConfig represents a pre-configured connection in the config file.
type ConnectionConfig struct {
	Name            string `yaml:"name"`
	Type            string `yaml:"type"`
	Role            string `yaml:"role"` // "source" or "destination"
	Scheme          string `yaml:"scheme"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Token           string `yaml:"token"`
	Insecure        bool   `yaml:"insecure"`
	CACert          string `yaml:"ca_cert"`
	ParentGroupPath string `yaml:"parent_group_path"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend  string `yaml:"backend"` // "file" or "mongo"
	MongoURI string `yaml:"mongo_uri"`
	Database string `yaml:"database"`
}

// ListConfig tunes source listing.
type ListConfig struct {
	ExcludePaths []string `yaml:"exclude_paths"`
}

// DiffConfig tunes the diff report.
type DiffConfig struct {
	// KeysToIgnore replaces the default per-kind ignore lists when set.
	KeysToIgnore []string `yaml:"keys_to_ignore"`
	// StrictCounts turns count mismatches into zero-accuracy entries.
	StrictCounts bool `yaml:"strict_counts"`
}

// Config holds all configuration (config file + flags + environment).
type Config struct {
	Listen      string             `yaml:"listen"`
	DataDir     string             `yaml:"data_dir"`
	Processes   int                `yaml:"processes"`
	JobTimeout  int                `yaml:"job_timeout"` // seconds, 0 disables
	SourceType  string             `yaml:"source_type"`
	LogLevel    string             `yaml:"log_level"`
	LogJSON     bool               `yaml:"log_json"`
	Connections []ConnectionConfig `yaml:"connections"`
	Store       StoreConfig        `yaml:"store"`
	List        ListConfig         `yaml:"list"`
	Diff        DiffConfig         `yaml:"diff"`
}

// DefaultProcesses is one less than the CPU count, and at least one.
func DefaultProcesses() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Listen:     ":8080",
		DataDir:    "./data",
		Processes:  DefaultProcesses(),
		SourceType: "gitlab",
		LogLevel:   "info",
		Store:      StoreConfig{Backend: "file", Database: "workbench"},
	}
}

// Load reads a YAML config file over the defaults. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, exitcode.Wrap(exitcode.Config, fmt.Errorf("reading %s: %w", path, err))
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, exitcode.Wrap(exitcode.Config, fmt.Errorf("parsing %s: %w", path, err))
	}
	return c, nil
}

// EnvPrefix is prepended to environment overrides, e.g. WORKBENCH_DATA_DIR.
const EnvPrefix = "WORKBENCH"

// NewViper returns a viper instance reading WORKBENCH_* overrides from the
// environment. Nested keys use underscores: store.backend is
// WORKBENCH_STORE_BACKEND.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Overlay applies values explicitly set through flags or WORKBENCH_*
// environment variables bound to v. File values are kept otherwise.
func (c *Config) Overlay(v *viper.Viper) {
	if v == nil {
		return
	}
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	str("listen", &c.Listen)
	str("data_dir", &c.DataDir)
	str("source_type", &c.SourceType)
	str("log_level", &c.LogLevel)
	str("store.backend", &c.Store.Backend)
	str("store.mongo_uri", &c.Store.MongoURI)
	str("store.database", &c.Store.Database)
	if v.IsSet("processes") {
		c.Processes = v.GetInt("processes")
	}
	if v.IsSet("job_timeout") {
		c.JobTimeout = v.GetInt("job_timeout")
	}
	if v.IsSet("log_json") {
		c.LogJSON = v.GetBool("log_json")
	}
	if v.IsSet("list.exclude_paths") {
		c.List.ExcludePaths = v.GetStringSlice("list.exclude_paths")
	}
}

// Validate rejects settings the workbench cannot run with.
func (c *Config) Validate() error {
	c.SourceType = strings.ToLower(strings.TrimSpace(c.SourceType))
	known := false
	for _, s := range SourceTypes {
		if s == c.SourceType {
			known = true
			break
		}
	}
	if !known {
		return exitcode.Wrap(exitcode.Config, fmt.Errorf("unknown source_type %q (want one of %s)", c.SourceType, strings.Join(SourceTypes, ", ")))
	}
	switch strings.ToLower(c.Store.Backend) {
	case "", "file", "mongo", "mongodb":
	default:
		return exitcode.Wrap(exitcode.Config, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Processes < 1 {
		c.Processes = 1
	}
	if c.JobTimeout < 0 {
		return exitcode.Wrap(exitcode.Config, fmt.Errorf("job_timeout must not be negative"))
	}
	for _, cc := range c.Connections {
		if cc.Role != "" && cc.Role != "source" && cc.Role != "destination" {
			return exitcode.Wrap(exitcode.Config, fmt.Errorf("connection %q: role must be source or destination", cc.Name))
		}
	}
	return nil
}

// Timeout returns the job timeout as a duration; zero means none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.JobTimeout) * time.Second
}

// ToConnection converts a configured connection, filling in defaults.
func (cc ConnectionConfig) ToConnection() *models.Connection {
	conn := &models.Connection{
		Name:            cc.Name,
		Type:            strings.ToLower(cc.Type),
		Role:            cc.Role,
		Scheme:          cc.Scheme,
		Host:            cc.Host,
		Port:            cc.Port,
		Token:           cc.Token,
		Insecure:        cc.Insecure,
		CACert:          cc.CACert,
		ParentGroupPath: strings.Trim(cc.ParentGroupPath, "/"),
	}
	if conn.Type == "" {
		conn.Type = "gitlab"
	}
	if conn.Role == "" {
		conn.Role = "source"
	}
	if conn.Scheme == "" {
		conn.Scheme = "https"
	}
	if conn.Port == 0 {
		if conn.Scheme == "https" {
			conn.Port = 443
		} else {
			conn.Port = 80
		}
	}
	return conn
}
