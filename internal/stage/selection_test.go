package stage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name  string
		in    []string
		kind  selectionKind
		start int
		end   int
		ids   []models.ID
	}{
		{name: "blank", in: []string{""}, kind: selectNone},
		{name: "all", in: []string{"all"}, kind: selectAll},
		{name: "dot", in: []string{"."}, kind: selectAll},
		{name: "range", in: []string{"2-4"}, kind: selectRange, start: 1, end: 4},
		{name: "range from zero", in: []string{"0-3"}, kind: selectRange, start: 0, end: 3},
		{name: "ids", in: []string{"2", "3"}, kind: selectIDs, ids: []models.ID{"2", "3"}},
		{name: "comma separated", in: []string{"2,3"}, kind: selectIDs, ids: []models.ID{"2", "3"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sel, err := ParseSelection(tc.in, "gitlab")
			require.NoError(t, err)
			assert.Equal(t, tc.kind, sel.kind)
			if tc.kind == selectRange {
				assert.Equal(t, tc.start, sel.start)
				assert.Equal(t, tc.end, sel.end)
			}
			if tc.kind == selectIDs {
				assert.Equal(t, tc.ids, sel.ids)
			}
		})
	}
}

func TestParseSelection_Malformed(t *testing.T) {
	for _, in := range [][]string{{"abc"}, {"2", "x7"}, {"2-x"}, {"5-3"}, {"0-0"}} {
		_, err := ParseSelection(in, "gitlab")
		assert.True(t, errors.Is(err, ErrMalformedSelection), "input %v", in)
	}
}
