package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		old    map[string]interface{}
		new    map[string]interface{}
		expect Delta
	}{
		{
			name:   "equal",
			old:    map[string]interface{}{"a": "x", "n": float64(1)},
			new:    map[string]interface{}{"a": "x", "n": float64(1)},
			expect: Delta{},
		},
		{
			name:   "changed scalar",
			old:    map[string]interface{}{"a": "x"},
			new:    map[string]interface{}{"a": "y"},
			expect: Delta{"a": Delta{Removed: "x", Added: "y"}},
		},
		{
			name:   "added and removed keys",
			old:    map[string]interface{}{"gone": true},
			new:    map[string]interface{}{"fresh": false},
			expect: Delta{"gone": Delta{Removed: true}, "fresh": Delta{Added: false}},
		},
		{
			name:   "numbers of different types",
			old:    map[string]interface{}{"n": int32(3)},
			new:    map[string]interface{}{"n": float64(3)},
			expect: Delta{},
		},
		{
			name: "nested object",
			old:  map[string]interface{}{"ns": map[string]interface{}{"path": "g1", "kind": "group"}},
			new:  map[string]interface{}{"ns": map[string]interface{}{"path": "g2", "kind": "group"}},
			expect: Delta{"ns": Delta{
				"path": Delta{Removed: "g1", Added: "g2"},
			}},
		},
		{
			name: "list elements by position",
			old:  map[string]interface{}{"tags": []interface{}{"a", "b", "c"}},
			new:  map[string]interface{}{"tags": []interface{}{"a", "x"}},
			expect: Delta{"tags": Delta{
				"1": Delta{Removed: "b", Added: "x"},
				"2": Delta{Removed: "c"},
			}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Compare(tc.old, tc.new))
		})
	}
}

func TestCompare_ContainerMismatchIsError(t *testing.T) {
	d := Compare(
		map[string]interface{}{"ns": map[string]interface{}{"id": float64(1)}},
		map[string]interface{}{"ns": "flat"},
	)
	assert.True(t, HasKey(d, ErrorKey))
}

func TestCompareLists_ExtraDestination(t *testing.T) {
	d := CompareLists([]interface{}{"a"}, []interface{}{"a", "b"})
	assert.Equal(t, Delta{"1": Delta{Added: "b"}}, d)
}

func TestHasKey(t *testing.T) {
	v := map[string]interface{}{
		"a": []interface{}{map[string]interface{}{"deep": map[string]interface{}{"error": "boom"}}},
	}
	assert.True(t, HasKey(v, "error"))
	assert.False(t, HasKey(v, "missing"))
	assert.False(t, HasKey("scalar", "error"))
}
