package store

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/rflorenc/scm-migration-workbench/internal/exitcode"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// schemaFor maps collections to the schema their records must satisfy.
var schemaFor = map[string]string{
	Groups:         "groups",
	StagedGroups:   "groups",
	Projects:       "projects",
	StagedProjects: "projects",
	Users:          "users",
}

var (
	schemaOnce     sync.Once
	schemaRegistry map[string]*gojsonschema.Schema
	schemaErr      error
)

func loadSchemas() {
	schemaRegistry = make(map[string]*gojsonschema.Schema)
	for _, name := range []string{"groups", "projects", "users"} {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".yaml")
		if err != nil {
			schemaErr = fmt.Errorf("reading schema %s: %w", name, err)
			return
		}
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			schemaErr = fmt.Errorf("parsing schema %s: %w", name, err)
			return
		}
		jb, err := json.Marshal(doc)
		if err != nil {
			schemaErr = fmt.Errorf("converting schema %s: %w", name, err)
			return
		}
		sch, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jb))
		if err != nil {
			schemaErr = fmt.Errorf("compiling schema %s: %w", name, err)
			return
		}
		schemaRegistry[name] = sch
	}
}

// ValidationError lists the schema violations found in a collection.
type ValidationError struct {
	Collection string
	Problems   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s failed validation: %s", e.Collection, strings.Join(e.Problems, "; "))
}

// ExitCode implements exitcode.Coder.
func (e *ValidationError) ExitCode() int { return exitcode.DataErr }

// Validate checks records against the schema of their collection.
// Collections without a schema always pass.
func Validate(collection string, records []models.Resource) error {
	name, ok := schemaFor[collection]
	if !ok {
		return nil
	}
	schemaOnce.Do(loadSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = map[string]interface{}(r)
	}
	res, err := schemaRegistry[name].Validate(gojsonschema.NewGoLoader(docs))
	if err != nil {
		return fmt.Errorf("validating %s: %w", collection, err)
	}
	if res.Valid() {
		return nil
	}
	verr := &ValidationError{Collection: collection}
	for _, e := range res.Errors() {
		verr.Problems = append(verr.Problems, e.String())
	}
	return verr
}
