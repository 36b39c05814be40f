package diff

import "strings"

// Result labels for aggregated accuracies.
const (
	Success = "success"
	Failure = "failure"
	Unknown = "unknown"
)

// existenceEndpoints name the comparisons that prove an entity exists on the
// destination. If one of them scores zero nothing else about the entity
// matters.
var existenceEndpoints = map[string]bool{
	"/projects/:id": true,
	"/groups/:id":   true,
}

// Count compares the number of items of some kind on each side.
type Count struct {
	Source      int `json:"source"`
	Destination int `json:"destination"`
}

// Accuracy is an aggregated accuracy with a verdict.
type Accuracy struct {
	Accuracy float64 `json:"accuracy"`
	Result   string  `json:"result"`
}

// StageAccuracy is the report-wide verdict across every entity.
type StageAccuracy struct {
	OverallAccuracy float64 `json:"overall_accuracy"`
	Result          string  `json:"result"`
}

// CountAccuracy scores a count comparison: 1 when equal, 0 when the source
// had none but the destination has some, otherwise the relative shortfall.
// A destination with more items than the source scores 1.
func CountAccuracy(source, destination int) float64 {
	if source == destination {
		return 1
	}
	if source == 0 {
		return 0
	}
	if destination > source {
		return 1
	}
	return clamp(1 - float64(source-destination)/float64(source))
}

func isCountKey(name string) bool {
	return strings.Contains(strings.ToLower(name), "total")
}

// OverallAccuracy averages the endpoint accuracies of one entity. Count
// entries do not contribute. A zero on an existence endpoint zeroes the
// whole entity; any other zero marks it failed.
func OverallAccuracy(e *EntityReport) Accuracy {
	var sum float64
	n := 0
	result := ""
	for name, r := range e.Endpoints {
		if isCountKey(name) {
			continue
		}
		if existenceEndpoints[name] && r.Accuracy == 0 {
			return Accuracy{Accuracy: 0, Result: Failure}
		}
		sum += r.Accuracy
		n++
		if r.Accuracy == 0 {
			result = Failure
		}
	}
	acc := 0.0
	if n > 0 {
		acc = sum / float64(n)
	}
	if result == "" {
		result = Success
	}
	return Accuracy{Accuracy: acc, Result: result}
}

// OverallStageAccuracy averages the overall accuracy of every entity.
func OverallStageAccuracy(entities map[string]*EntityReport) StageAccuracy {
	var sum float64
	result := ""
	for _, e := range entities {
		sum += e.Overall.Accuracy
		if e.Overall.Accuracy == 0 {
			result = Failure
		}
	}
	acc := 0.0
	if len(entities) > 0 {
		acc = sum / float64(len(entities))
	}
	if result == "" {
		result = Success
	}
	return StageAccuracy{OverallAccuracy: acc, Result: result}
}

// ProblematicFieldsAccuracy turns every "Total ..." count of e into an
// accuracy entry that is 1 on an exact match and 0 otherwise, so count
// mismatches pull the entity's overall accuracy down.
func ProblematicFieldsAccuracy(e *EntityReport) {
	for name, c := range e.Counts {
		key := strings.TrimSpace(strings.TrimPrefix(name, "Total "))
		if isCountKey(key) {
			continue
		}
		acc := 0.0
		if c.Source == c.Destination {
			acc = 1
		}
		e.SetEndpoint(key, Result{Accuracy: acc})
	}
}
