package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ID identifies a record within one source instance. GitLab-style sources
// use integers, Azure DevOps uses UUIDs; both are held in canonical string
// form so they can key maps.
type ID string

// IDFrom converts a decoded JSON/BSON value into an ID. Unsupported values
// yield the empty ID.
func IDFrom(v interface{}) ID {
	switch n := v.(type) {
	case nil:
		return ""
	case ID:
		return n
	case string:
		return ID(n)
	case float64:
		if n == math.Trunc(n) {
			return ID(strconv.FormatInt(int64(n), 10))
		}
		return ID(strconv.FormatFloat(n, 'f', -1, 64))
	case int:
		return ID(strconv.Itoa(n))
	case int32:
		return ID(strconv.FormatInt(int64(n), 10))
	case int64:
		return ID(strconv.FormatInt(n, 10))
	case json.Number:
		return ID(n.String())
	case map[string]interface{}:
		return IDFrom(n["id"])
	case Resource:
		return IDFrom(n["id"])
	}
	return ID(fmt.Sprint(v))
}

// Int returns the numeric form of the ID, if it has one.
func (id ID) Int() (int, bool) {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool { return id == "" }

func (id ID) String() string { return string(id) }

// MarshalJSON writes canonical integer IDs as numbers and everything else,
// including zero-padded digits like "007", as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int(); ok && strconv.Itoa(n) == string(id) {
		return []byte(string(id)), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *ID) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	*id = IDFrom(raw)
	return nil
}
