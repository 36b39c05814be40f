package models

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_WriteSplitsLines(t *testing.T) {
	j := &Job{Output: []string{}}
	fmt.Fprint(j, "first\nsec")
	fmt.Fprint(j, "ond\nthird")
	assert.Equal(t, []string{"first", "second"}, j.LogsSince(0))

	j.Complete(nil)
	assert.Equal(t, []string{"first", "second", "third"}, j.LogsSince(0))
	assert.Equal(t, []string{"third"}, j.LogsSince(2))
	assert.Nil(t, j.LogsSince(3))
}

func TestJob_AsSlogSink(t *testing.T) {
	j := &Job{Output: []string{}}
	l := slog.New(slog.NewTextHandler(j, nil))
	l.Info("staged group", "id", 7)
	require.Len(t, j.LogsSince(0), 1)
	assert.Contains(t, j.LogsSince(0)[0], "staged group")
}

func TestJobStore_Lifecycle(t *testing.T) {
	s := NewJobStore()
	a := s.Create("list", false)
	time.Sleep(2 * time.Millisecond)
	b := s.Create("stage", true)

	assert.Equal(t, "running", a.Status)
	assert.False(t, a.Done())
	assert.True(t, b.DryRun)
	assert.Same(t, a, s.Get(a.ID))
	assert.Nil(t, s.Get("missing"))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID, "most recent job first")

	a.Complete(map[string]int{"groups": 2})
	assert.True(t, a.Done())
	assert.Equal(t, "completed", a.Snapshot().Status)
	assert.NotNil(t, a.FinishedAt)

	b.Fail("boom")
	snap := b.Snapshot()
	assert.Equal(t, "failed", snap.Status)
	assert.Equal(t, "boom", snap.Error)
}
