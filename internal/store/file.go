package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rflorenc/scm-migration-workbench/internal/diff"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// FileStore keeps each collection in <dir>/<collection>.json.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// ListAll returns every record of a collection. Listed collections are
// validated against their schema.
func (s *FileStore) ListAll(_ context.Context, collection string) ([]models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, noCollection(collection)
		}
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	var records []models.Resource
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", collection, err)
	}
	if err := Validate(collection, records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetByID returns the first record with the given id.
func (s *FileStore) GetByID(ctx context.Context, collection string, id models.ID) (models.Resource, bool, error) {
	records, err := s.ListAll(ctx, collection)
	if err != nil {
		return nil, false, err
	}
	for _, r := range records {
		if r.ID() == id {
			return r, true, nil
		}
	}
	return nil, false, nil
}

// Write replaces a collection. The file is swapped in atomically.
func (s *FileStore) Write(_ context.Context, collection string, records []models.Resource) error {
	if records == nil {
		records = []models.Resource{}
	}
	if err := Validate(collection, records); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", collection, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", collection, err)
	}
	if err := os.Rename(tmp.Name(), s.path(collection)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", collection, err)
	}
	return nil
}

// WriteReport stores the report in its diff_report_<kind> collection.
func (s *FileStore) WriteReport(ctx context.Context, r *diff.Report) error {
	records, err := reportRecords(r)
	if err != nil {
		return err
	}
	return s.Write(ctx, ReportCollection(r.Kind), records)
}

// ReadReport loads a stored report.
func (s *FileStore) ReadReport(ctx context.Context, kind string) (*diff.Report, error) {
	records, err := s.ListAll(ctx, ReportCollection(kind))
	if err != nil {
		return nil, err
	}
	return reportFromRecords(kind, records)
}

// Close is a no-op for files.
func (s *FileStore) Close(context.Context) error { return nil }
