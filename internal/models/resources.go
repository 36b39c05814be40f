package models

import (
	"encoding/json"
	"strconv"
)

// Resource is a JSON-compatible record as listed from a source system or
// read back from the document store. Fields pass through untouched; typed
// views (Group, Project, Member) are parsed from it on demand.
type Resource map[string]interface{}

// Lookup returns the raw value for field and whether it was present.
func (r Resource) Lookup(field string) (interface{}, bool) {
	v, ok := r[field]
	return v, ok
}

// ID returns the record's "id" field.
func (r Resource) ID() ID {
	return IDFrom(r["id"])
}

// String returns field as a string, or "" if it is absent or not a string.
func (r Resource) String(field string) string {
	if v, ok := r[field].(string); ok {
		return v
	}
	return ""
}

// Int returns field as an int, or 0 if it is absent or not numeric.
func (r Resource) Int(field string) int {
	return toInt(r[field])
}

// Bool returns field as a bool, or false if it is absent.
func (r Resource) Bool(field string) bool {
	if v, ok := r[field].(bool); ok {
		return v
	}
	return false
}

// Slice returns field as a list, or nil.
func (r Resource) Slice(field string) []interface{} {
	switch v := r[field].(type) {
	case []interface{}:
		return v
	case []Resource:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	}
	return nil
}

// Name returns the name (or username) of a record.
func (r Resource) Name() string {
	if n := r.String("name"); n != "" {
		return n
	}
	return r.String("username")
}

// Clone returns a deep copy of the record.
func (r Resource) Clone() Resource {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]interface{}(r)).(map[string]interface{})
}

// AsResource converts a generic JSON object into a Resource.
func AsResource(v interface{}) (Resource, bool) {
	switch m := v.(type) {
	case Resource:
		return m, true
	case map[string]interface{}:
		return Resource(m), true
	}
	return nil, false
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Resource:
		return cloneValue(map[string]interface{}(t))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	}
	return v
}

// toInt converts the numeric types produced by JSON and BSON decoding to int.
func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case float32:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}
