package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountAccuracy(t *testing.T) {
	tests := []struct {
		src, dst int
		expect   float64
	}{
		{10, 10, 1.0},
		{10, 5, 0.5},
		{0, 5, 0.0},
		{10, 15, 1.0},
		{0, 0, 1.0},
		{4, 0, 0.0},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.expect, CountAccuracy(tc.src, tc.dst), 1e-9, "CountAccuracy(%d, %d)", tc.src, tc.dst)
	}
}

func TestOverallAccuracy(t *testing.T) {
	e := NewEntityReport()
	e.SetEndpoint("/projects/:id", Result{Accuracy: 1})
	e.SetEndpoint("/projects/:id/members", Result{Accuracy: 0.5})
	e.SetCount("Members", 3, 2)
	assert.Equal(t, Accuracy{Accuracy: 0.75, Result: Success}, OverallAccuracy(e))

	e.SetEndpoint("/projects/:id/labels", Result{Accuracy: 0})
	got := OverallAccuracy(e)
	assert.InDelta(t, 0.5, got.Accuracy, 1e-9)
	assert.Equal(t, Failure, got.Result)

	e.SetEndpoint("/projects/:id", Result{Accuracy: 0})
	assert.Equal(t, Accuracy{Accuracy: 0, Result: Failure}, OverallAccuracy(e))
}

func TestOverallStageAccuracy(t *testing.T) {
	a := NewEntityReport()
	a.Overall = Accuracy{Accuracy: 1, Result: Success}
	b := NewEntityReport()
	b.Overall = Accuracy{Accuracy: 0.5, Result: Success}
	entities := map[string]*EntityReport{"g/a": a, "g/b": b}
	assert.Equal(t, StageAccuracy{OverallAccuracy: 0.75, Result: Success}, OverallStageAccuracy(entities))

	entities["g/c"] = MissingEntity("project")
	got := OverallStageAccuracy(entities)
	assert.InDelta(t, 0.5, got.OverallAccuracy, 1e-9)
	assert.Equal(t, Failure, got.Result)
}

func TestProblematicFieldsAccuracy(t *testing.T) {
	e := NewEntityReport()
	e.SetEndpoint("/projects/:id", Result{Accuracy: 1})
	e.SetCount("Members", 3, 2)
	e.SetCount("Labels", 4, 4)
	ProblematicFieldsAccuracy(e)

	assert.Equal(t, 0.0, e.Endpoints["Number of Members"].Accuracy)
	assert.Equal(t, 1.0, e.Endpoints["Number of Labels"].Accuracy)
	got := OverallAccuracy(e)
	assert.InDelta(t, 2.0/3.0, got.Accuracy, 1e-9)
	assert.Equal(t, Failure, got.Result)
}
