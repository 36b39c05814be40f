// Package store persists listed, staged and reported records as keyed
// collections, either as JSON files under the data directory or in MongoDB.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rflorenc/scm-migration-workbench/internal/diff"
	"github.com/rflorenc/scm-migration-workbench/internal/exitcode"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// Collection names.
const (
	Groups         = "groups"
	Projects       = "projects"
	Users          = "users"
	StagedGroups   = "staged_groups"
	StagedProjects = "staged_projects"
	StagedUsers    = "staged_users"
	ImportResults  = "import_results"

	reportPrefix = "diff_report_"
)

// ErrNoCollection is returned when a collection has never been written.
var ErrNoCollection = errors.New("collection not found")

func noCollection(name string) error {
	return exitcode.Wrap(exitcode.NoInput, fmt.Errorf("%w: %s", ErrNoCollection, name))
}

// Lookup reads records back.
type Lookup interface {
	ListAll(ctx context.Context, collection string) ([]models.Resource, error)
	GetByID(ctx context.Context, collection string, id models.ID) (models.Resource, bool, error)
}

// Sink writes records. Write replaces the whole collection.
type Sink interface {
	Write(ctx context.Context, collection string, records []models.Resource) error
}

// ReportSink persists accuracy reports.
type ReportSink interface {
	WriteReport(ctx context.Context, report *diff.Report) error
	ReadReport(ctx context.Context, kind string) (*diff.Report, error)
}

// Store is a complete document store.
type Store interface {
	Lookup
	Sink
	ReportSink
	Close(ctx context.Context) error
}

// Options select and configure a backend.
type Options struct {
	Backend  string // "file" or "mongo"
	Dir      string
	MongoURI string
	Database string
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "file":
		return NewFileStore(opts.Dir)
	case "mongo", "mongodb":
		return NewMongoStore(ctx, opts.MongoURI, opts.Database)
	}
	return nil, exitcode.Wrap(exitcode.Config, fmt.Errorf("unknown store backend %q", opts.Backend))
}

// WriteStaged persists a staged set. With skipUsers the staged users
// collection is written empty.
func WriteStaged(ctx context.Context, s Sink, set *models.StagedSet, skipUsers bool) error {
	if err := s.Write(ctx, StagedGroups, set.Groups); err != nil {
		return err
	}
	if err := s.Write(ctx, StagedProjects, set.Projects); err != nil {
		return err
	}
	users := set.Users
	if skipUsers {
		users = []models.Resource{}
	}
	return s.Write(ctx, StagedUsers, users)
}

// ReportCollection is the collection a report of the given kind lives in.
func ReportCollection(kind string) string {
	return reportPrefix + strings.ToLower(kind)
}

// reportRecords flattens a report into one record per entity.
func reportRecords(r *diff.Report) ([]models.Resource, error) {
	out := make([]models.Resource, 0, len(r.Entities))
	for _, key := range r.Keys() {
		b, err := json.Marshal(r.Entities[key])
		if err != nil {
			return nil, fmt.Errorf("encoding report for %s: %w", key, err)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, fmt.Errorf("encoding report for %s: %w", key, err)
		}
		out = append(out, models.Resource{"id": key, "report": body})
	}
	return out, nil
}

// reportFromRecords rebuilds a report and recomputes its summary.
func reportFromRecords(kind string, records []models.Resource) (*diff.Report, error) {
	r := diff.NewReport(kind)
	for _, rec := range records {
		key := rec.String("id")
		b, err := json.Marshal(rec["report"])
		if err != nil {
			return nil, fmt.Errorf("decoding report for %s: %w", key, err)
		}
		var e diff.EntityReport
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("decoding report for %s: %w", key, err)
		}
		r.Add(key, &e)
	}
	r.Finalize()
	return r, nil
}
