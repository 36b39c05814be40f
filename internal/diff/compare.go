// Package diff compares source and destination JSON documents and scores how
// faithfully the destination reproduces the source.
package diff

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// Markers used in a Delta for removed (source only) and added (destination
// only) values.
const (
	Removed = "---"
	Added   = "+++"
	// ErrorKey marks a comparison that could not be made. Its presence
	// anywhere in a Delta zeroes the accuracy.
	ErrorKey = "error"
)

// Delta is a structural diff tree. Object fields keep their names; list
// positions are keyed by their decimal index. A leaf is a map holding
// Removed and/or Added values.
type Delta map[string]interface{}

// Compare returns the structural diff between two JSON objects. An empty
// Delta means the objects are equal.
func Compare(old, new map[string]interface{}) Delta {
	out := Delta{}
	for k, ov := range old {
		nv, ok := new[k]
		if !ok {
			out[k] = Delta{Removed: ov}
			continue
		}
		if d := compareElements(ov, nv); d != nil {
			out[k] = d
		}
	}
	for k, nv := range new {
		if _, ok := old[k]; !ok {
			out[k] = Delta{Added: nv}
		}
	}
	return out
}

// CompareLists diffs two JSON arrays position by position. Extra source
// elements are marked removed, extra destination elements added.
func CompareLists(old, new []interface{}) Delta {
	out := Delta{}
	n := len(old)
	if len(new) < n {
		n = len(new)
	}
	for i := 0; i < n; i++ {
		if d := compareElements(old[i], new[i]); d != nil {
			out[strconv.Itoa(i)] = d
		}
	}
	for i := n; i < len(old); i++ {
		out[strconv.Itoa(i)] = Delta{Removed: old[i]}
	}
	for i := n; i < len(new); i++ {
		out[strconv.Itoa(i)] = Delta{Added: new[i]}
	}
	return out
}

// compareElements returns nil when a and b are equal.
func compareElements(a, b interface{}) Delta {
	am, aIsMap := asMap(a)
	bm, bIsMap := asMap(b)
	al, aIsList := asList(a)
	bl, bIsList := asList(b)

	switch {
	case aIsMap && bIsMap:
		if d := Compare(am, bm); len(d) > 0 {
			return d
		}
		return nil
	case aIsList && bIsList:
		if d := CompareLists(al, bl); len(d) > 0 {
			return d
		}
		return nil
	case aIsMap != bIsMap || aIsList != bIsList:
		return Delta{
			Removed:  a,
			Added:    b,
			ErrorKey: fmt.Sprintf("type mismatch: %s vs %s", kindOf(a), kindOf(b)),
		}
	}
	if scalarEqual(a, b) {
		return nil
	}
	return Delta{Removed: a, Added: b}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case models.Resource:
		return m, true
	case Delta:
		return m, true
	}
	return nil, false
}

func asList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	case []models.Resource:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	}
	return nil, false
}

func kindOf(v interface{}) string {
	if _, ok := asMap(v); ok {
		return "object"
	}
	if _, ok := asList(v); ok {
		return "array"
	}
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// scalarEqual compares leaves, treating numbers of different Go types as
// equal when their values match.
func scalarEqual(a, b interface{}) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// HasKey reports whether key appears at any depth of v.
func HasKey(v interface{}, key string) bool {
	if m, ok := asMap(v); ok {
		for k, child := range m {
			if k == key || HasKey(child, key) {
				return true
			}
		}
		return false
	}
	if l, ok := asList(v); ok {
		for _, child := range l {
			if HasKey(child, key) {
				return true
			}
		}
	}
	return false
}
