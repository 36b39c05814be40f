package diff

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// EntityReport holds every comparison made for one migrated entity, keyed
// by endpoint.
type EntityReport struct {
	Endpoints map[string]Result
	Counts    map[string]Count
	Error     string
	Info      string
	Overall   Accuracy
}

// NewEntityReport returns an empty report.
func NewEntityReport() *EntityReport {
	return &EntityReport{
		Endpoints: map[string]Result{},
		Counts:    map[string]Count{},
	}
}

// MissingEntity is the report for an entity absent from the destination.
func MissingEntity(kind string) *EntityReport {
	e := NewEntityReport()
	e.Error = kind + " missing"
	e.Overall = Accuracy{Accuracy: 0, Result: Failure}
	return e
}

// AlreadyMigrated is the report for an entity the import skipped because it
// already existed.
func AlreadyMigrated(kind string) *EntityReport {
	e := NewEntityReport()
	e.Info = kind + " already migrated"
	e.Overall = Accuracy{Accuracy: 1, Result: Unknown}
	return e
}

// SetEndpoint records a comparison.
func (e *EntityReport) SetEndpoint(name string, r Result) {
	if e.Endpoints == nil {
		e.Endpoints = map[string]Result{}
	}
	e.Endpoints[name] = r
}

// SetCount records a count comparison under "Total Number of <what>".
func (e *EntityReport) SetCount(what string, source, destination int) {
	if e.Counts == nil {
		e.Counts = map[string]Count{}
	}
	e.Counts["Total Number of "+what] = Count{Source: source, Destination: destination}
}

// Finalize computes the overall accuracy from the recorded endpoints.
func (e *EntityReport) Finalize() {
	e.Overall = OverallAccuracy(e)
}

func (e *EntityReport) fields(withDiffs bool) map[string]interface{} {
	out := make(map[string]interface{}, len(e.Endpoints)+len(e.Counts)+3)
	for name, r := range e.Endpoints {
		if withDiffs {
			out[name] = r
		} else {
			out[name] = map[string]interface{}{"accuracy": r.Accuracy}
		}
	}
	for name, c := range e.Counts {
		out[name] = c
	}
	if e.Error != "" {
		out["error"] = e.Error
	}
	if e.Info != "" {
		out["info"] = e.Info
	}
	out["overall_accuracy"] = e.Overall
	return out
}

// MarshalJSON flattens the report into a single object keyed by endpoint.
func (e *EntityReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.fields(true))
}

// UnmarshalJSON reads the flattened form back.
func (e *EntityReport) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding entity report: %w", err)
	}
	*e = *NewEntityReport()
	for k, v := range raw {
		var err error
		switch {
		case k == "overall_accuracy":
			err = json.Unmarshal(v, &e.Overall)
		case k == "error":
			err = json.Unmarshal(v, &e.Error)
		case k == "info":
			err = json.Unmarshal(v, &e.Info)
		case isCountKey(k):
			var c Count
			err = json.Unmarshal(v, &c)
			e.Counts[k] = c
		default:
			var r Result
			err = json.Unmarshal(v, &r)
			e.Endpoints[k] = r
		}
		if err != nil {
			return fmt.Errorf("decoding %q: %w", k, err)
		}
	}
	return nil
}

// Report collects the entity reports of one kind (project, group).
type Report struct {
	Kind     string
	Entities map[string]*EntityReport
	Summary  StageAccuracy
}

// NewReport returns an empty report of the given kind.
func NewReport(kind string) *Report {
	return &Report{Kind: kind, Entities: map[string]*EntityReport{}}
}

// SummaryKey is the key the report-wide verdict is stored under.
func (r *Report) SummaryKey() string {
	return strings.ToLower(r.Kind) + "_migration_results"
}

// Add records the report for one entity.
func (r *Report) Add(key string, e *EntityReport) {
	r.Entities[key] = e
}

// Finalize computes the report-wide verdict.
func (r *Report) Finalize() {
	r.Summary = OverallStageAccuracy(r.Entities)
}

// Keys returns the entity keys in sorted order.
func (r *Report) Keys() []string {
	keys := make([]string, 0, len(r.Entities))
	for k := range r.Entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Successful counts the entities that made it to the destination.
func (r *Report) Successful() int {
	n := 0
	for _, e := range r.Entities {
		if e.Error == "" {
			n++
		}
	}
	return n
}

// MarshalJSON writes the entities and the summary as one object.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Entities)+1)
	for k, e := range r.Entities {
		out[k] = e
	}
	out[r.SummaryKey()] = r.Summary
	return json.Marshal(out)
}

// Accuracies returns the report with every diff stripped, leaving only the
// scores.
func (r *Report) Accuracies() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Entities)+1)
	for k, e := range r.Entities {
		out[k] = e.fields(false)
	}
	out[r.SummaryKey()] = r.Summary
	return out
}
