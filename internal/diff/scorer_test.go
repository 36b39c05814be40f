package diff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/scm-migration-workbench/internal/logger"
)

func newScorer() *Scorer {
	return NewScorer(logger.Discard())
}

func obj(kv ...interface{}) map[string]interface{} {
	m := map[string]interface{}{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func TestDiff_PerfectMatch(t *testing.T) {
	x := obj("name", "p", "visibility", "private", "stats", obj("commits", float64(3)))
	r := newScorer().Diff(x, x, Options{})
	assert.Empty(t, r.Diff)
	assert.Equal(t, 1.0, r.Accuracy)
}

func TestDiff_MissingDestinationIsVacuousPass(t *testing.T) {
	s := newScorer()
	for _, dst := range []interface{}{nil, map[string]interface{}{}, []interface{}{}} {
		r := s.Diff(obj("name", "p"), dst, Options{})
		assert.Nil(t, r.Diff)
		assert.Equal(t, 1.0, r.Accuracy)
	}
}

func TestDiff_CriticalKeyMismatchForcesZero(t *testing.T) {
	src := obj("path", "a", "name", "same", "description", "same")
	dst := obj("path", "b", "name", "same", "description", "same")
	r := newScorer().Diff(src, dst, Options{CriticalKey: "path"})
	assert.Equal(t, 0.0, r.Accuracy)

	// without the critical key the formula applies: 3 lines, 2 markers
	r = newScorer().Diff(src, dst, Options{})
	assert.InDelta(t, 3.0/5.0, r.Accuracy, 1e-9)
}

func TestDiff_CriticalKeyCaseInsensitive(t *testing.T) {
	r := newScorer().Diff(obj("path", "Group/Proj"), obj("path", "group/proj"), Options{CriticalKey: "path"})
	assert.InDelta(t, 1.0/3.0, r.Accuracy, 1e-9)
}

func TestDiff_CriticalKeyWithParentGroup(t *testing.T) {
	s := newScorer()
	src := obj("path_with_namespace", "g1/p")

	ok := s.Diff(src, obj("path_with_namespace", "Dest/g1/p"), Options{CriticalKey: "path_with_namespace", ParentGroup: "dest"})
	assert.InDelta(t, 1.0/3.0, ok.Accuracy, 1e-9)

	wrong := s.Diff(src, obj("path_with_namespace", "other/g1/p"), Options{CriticalKey: "path_with_namespace", ParentGroup: "dest"})
	assert.Equal(t, 0.0, wrong.Accuracy)
}

func TestDiff_LineFormula(t *testing.T) {
	src := obj("a", float64(1), "b", float64(2), "c", float64(3), "d", float64(4))
	dst := obj("a", float64(1), "b", float64(2), "c", float64(3), "d", float64(5))
	r := newScorer().Diff(src, dst, Options{})
	assert.InDelta(t, 4.0/6.0, r.Accuracy, 1e-9)
}

func TestDiff_DestinationWithExtraFields(t *testing.T) {
	r := newScorer().Diff(obj("a", float64(1)), obj("a", float64(1), "b", float64(2)), Options{})
	// two destination lines clamp to one, one added marker inflates the source
	assert.InDelta(t, 1.0/3.0, r.Accuracy, 1e-9)
}

func TestDiff_ErrorMarkerForcesZero(t *testing.T) {
	src := obj("name", "p")
	r := newScorer().Diff(src, MissingAsset(src, "dest/g1/p"), Options{})
	assert.Equal(t, 0.0, r.Accuracy)
	assert.True(t, HasKey(r.Diff, ErrorKey))
}

func TestDiff_Lists(t *testing.T) {
	s := newScorer()
	src := []interface{}{obj("name", "a"), obj("name", "b")}

	changed := s.Diff(src, []interface{}{obj("name", "a"), obj("name", "c")}, Options{})
	assert.InDelta(t, (1.0+1.0/3.0)/2.0, changed.Accuracy, 1e-9)

	short := s.Diff(src, []interface{}{obj("name", "a")}, Options{})
	assert.InDelta(t, 0.5, short.Accuracy, 1e-9)

	same := s.Diff(src, []interface{}{obj("name", "a"), obj("name", "b")}, Options{})
	assert.Equal(t, 1.0, same.Accuracy)
}

func TestDiff_ListMissingAssetIsZero(t *testing.T) {
	src := []interface{}{obj("name", "a")}
	r := newScorer().Diff(src, MissingAsset(src, "g/p"), Options{})
	assert.Equal(t, 0.0, r.Accuracy)
}

func TestDiff_ShapeMismatch(t *testing.T) {
	r := newScorer().Diff([]interface{}{obj("name", "a")}, obj("error", "asset 'x' is missing"), Options{})
	assert.Equal(t, 0.0, r.Accuracy)
	assert.True(t, HasKey(r.Diff, ErrorKey))
}

func TestDiff_ObfuscatesSecrets(t *testing.T) {
	src := []interface{}{obj("key", "TOKEN", "value", "hunter2")}
	dst := []interface{}{obj("key", "TOKEN", "value", "hunter3")}
	r := newScorer().Diff(src, dst, Options{Obfuscate: true})
	b, err := json.Marshal(r.Diff)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hunter2")
	assert.NotContains(t, string(b), "hunter3")
	assert.Less(t, r.Accuracy, 1.0)
	// caller data is untouched
	assert.Equal(t, "hunter2", src[0].(map[string]interface{})["value"])
}

func TestDiff_AccuracyBounds(t *testing.T) {
	s := newScorer()
	cases := []struct{ src, dst interface{} }{
		{obj("a", "x"), obj("b", "y", "c", "z", "d", "w")},
		{obj("a", obj("b", obj("c", "d"))), obj("a", "flat")},
		{[]interface{}{obj("a", "x")}, []interface{}{obj("a", "y"), obj("a", "z"), obj("b", "q")}},
		{obj(), obj("a", "x")},
		{[]interface{}{"x", "y"}, []interface{}{"y"}},
	}
	for _, c := range cases {
		r := s.Diff(c.src, c.dst, Options{CriticalKey: "a"})
		assert.GreaterOrEqual(t, r.Accuracy, 0.0)
		assert.LessOrEqual(t, r.Accuracy, 1.0)
	}
}

func TestObfuscate(t *testing.T) {
	in := obj("value", "secret", "key", nil, "runners_token", float64(12), "other", "x")
	out := Obfuscate(in)
	assert.Equal(t, "c2VjcmV0", out["value"])
	assert.NotContains(t, out, "key")
	assert.Equal(t, "MTI=", out["runners_token"])
	assert.Equal(t, "x", out["other"])
	assert.Equal(t, "secret", in["value"], "input must not be modified")
}

func TestIgnoreKeys(t *testing.T) {
	in := []interface{}{
		obj("id", float64(1), "name", "p", "namespace", obj("id", float64(2), "full_path", "g")),
	}
	out := IgnoreKeys(in, []string{"id"})
	assert.Equal(t, []interface{}{
		map[string]interface{}{"name": "p", "namespace": map[string]interface{}{"full_path": "g"}},
	}, out)
	assert.Contains(t, in[0].(map[string]interface{}), "id")
}

func TestTotalLines(t *testing.T) {
	flat := obj("a", float64(1), "b", float64(2), "c", float64(3))
	assert.Equal(t, 3, TotalLines(flat, nil))
	assert.Equal(t, 2, TotalLines(flat, map[string]bool{"a": true}))

	// only object-valued children count once nesting starts
	nested := obj("a", float64(1), "b", obj("c", float64(1), "d", float64(2)), "e", obj("f", float64(1)))
	assert.Equal(t, 3, TotalLines(nested, nil))
}

func TestTotalDifferences(t *testing.T) {
	d := Delta{
		"a": Delta{Removed: float64(1), Added: float64(2)},
		"b": Delta{Added: "x"},
		"c": Delta{"d": Delta{Removed: "y"}},
	}
	assert.Equal(t, 4, TotalDifferences(d))
}

func TestCriticalKeyCheck(t *testing.T) {
	d := Delta{"full_path": Delta{Removed: "G1", Added: "g1"}}
	assert.Equal(t, 0.7, CriticalKeyCheck(d, "full_path", "", 0.7))
	assert.Equal(t, 0.7, CriticalKeyCheck(d, "name", "", 0.7))
	assert.Equal(t, 0.0, CriticalKeyCheck(Delta{"full_path": Delta{Removed: "g1"}}, "full_path", "", 0.7))
}
