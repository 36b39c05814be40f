// Package cli wires the workbench commands: serve, list, stage, diff,
// report and version.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rflorenc/scm-migration-workbench/internal/config"
	"github.com/rflorenc/scm-migration-workbench/internal/exitcode"
	"github.com/rflorenc/scm-migration-workbench/internal/logger"
	"github.com/rflorenc/scm-migration-workbench/internal/migration"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
	"github.com/rflorenc/scm-migration-workbench/internal/store"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type app struct {
	build BuildInfo
	v     *viper.Viper
	cfg   *config.Config
	log   *slog.Logger
	// logOut overrides stderr, for tests.
	logOut io.Writer
}

// NewRootCmd builds the command tree.
func NewRootCmd(build BuildInfo) *cobra.Command {
	a := &app{build: build, v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:   "workbench",
		Short: "Stage and verify SCM group migrations.",
		Long: `workbench lists a source SCM instance, stages a selection of groups with
everything they depend on, and scores how faithfully the destination
reproduces each staged project and group.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (YAML)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Bool("json", false, "log as JSON")
	pf.Int("processes", 0, "worker pool size (default NumCPU-1)")
	pf.String("data-dir", "", "data directory for the file store and reports")
	pf.String("source-type", "", "source type: gitlab, github, bitbucket server, azure devops, ...")
	pf.String("store", "", "store backend: file or mongo")
	pf.String("mongo-uri", "", "MongoDB connection string")
	a.bind(pf, map[string]string{
		"config":      "config",
		"log-level":   "log_level",
		"json":        "log_json",
		"processes":   "processes",
		"data-dir":    "data_dir",
		"source-type": "source_type",
		"store":       "store.backend",
		"mongo-uri":   "store.mongo_uri",
	})

	rootCmd.AddCommand(a.serveCmd())
	rootCmd.AddCommand(a.listCmd())
	rootCmd.AddCommand(a.stageCmd())
	rootCmd.AddCommand(a.diffCmd())
	rootCmd.AddCommand(a.reportCmd())
	rootCmd.AddCommand(a.versionCmd())
	return rootCmd
}

// Execute runs the command tree. The returned error carries the exit code.
func Execute(ctx context.Context, build BuildInfo, args []string) error {
	cmd := NewRootCmd(build)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		slog.Error("command failed", "error", err, "exit_code", exitcode.String(exitcode.FromError(err)))
	}
	return err
}

func (a *app) bind(fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		cobra.CheckErr(a.v.BindPFlag(key, fs.Lookup(flag)))
	}
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v.GetString("config"))
	if err != nil {
		return err
	}
	cfg.Overlay(a.v)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	out := a.logOut
	if out == nil {
		out = cmd.ErrOrStderr()
	}
	a.log = logger.Init(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Writer: out})
	if path := a.v.GetString("config"); path != "" {
		a.log.Debug("using config file", "file", path)
	}
	return nil
}

// openStore opens the configured backend.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Options{
		Backend:  a.cfg.Store.Backend,
		Dir:      a.cfg.DataDir,
		MongoURI: a.cfg.Store.MongoURI,
		Database: a.cfg.Store.Database,
	})
	if err != nil {
		return nil, exitcode.Wrap(exitcode.IOErr, fmt.Errorf("opening store: %w", err))
	}
	return st, nil
}

func (a *app) serviceOptions() migration.Options {
	return migration.Options{
		SourceType:   a.cfg.SourceType,
		Processes:    a.cfg.Processes,
		ExcludePaths: a.cfg.List.ExcludePaths,
		KeysToIgnore: a.cfg.Diff.KeysToIgnore,
		StrictCounts: a.cfg.Diff.StrictCounts,
		ResultsDir:   filepath.Join(a.cfg.DataDir, "results"),
	}
}

// withService opens the store and runs fn, bounded by job_timeout when one is
// configured. The store is closed on the unbounded context.
func (a *app) withService(ctx context.Context, opts migration.Options, fn func(context.Context, *migration.Service) error) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close(ctx)
	if d := a.cfg.Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx, migration.New(st, a.log, opts))
}

// connection picks the configured connection with role, preferring name.
func (a *app) connection(role, name string) (*models.Connection, error) {
	for _, cc := range a.cfg.Connections {
		conn := cc.ToConnection()
		if conn.Role != role {
			continue
		}
		if name == "" || conn.Name == name {
			return conn, nil
		}
	}
	if name != "" {
		return nil, exitcode.Wrap(exitcode.Config, fmt.Errorf("no %s connection named %q", role, name))
	}
	return nil, exitcode.Wrap(exitcode.Config, fmt.Errorf("no %s connection configured", role))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
