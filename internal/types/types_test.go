package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkItemValidate(t *testing.T) {
	now := time.Now()

	valid := WorkItem{
		Title:     "Add login flow",
		Type:      TypeStory,
		Status:    StatusTodo,
		Priority:  PriorityMedium,
		ProjectID: 1,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*WorkItem)
		wantErr string
	}{
		{"missing title", func(w *WorkItem) { w.Title = "" }, "title is required"},
		{"missing project", func(w *WorkItem) { w.ProjectID = 0 }, "projectId is required"},
		{"bad type", func(w *WorkItem) { w.Type = "initiative" }, "invalid item type"},
		{"bad status", func(w *WorkItem) { w.Status = "cancelled" }, "invalid status"},
		{"bad priority", func(w *WorkItem) { w.Priority = "urgent" }, "invalid priority"},
		{"negative estimate", func(w *WorkItem) { e := -1.0; w.Estimate = &e }, "estimate cannot be negative"},
		{"done without completedAt", func(w *WorkItem) { w.Status = StatusDone }, "must have completedAt"},
		{"todo with completedAt", func(w *WorkItem) { w.CompletedAt = &now }, "cannot have completedAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := valid
			tt.mutate(&w)
			err := w.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWorkItemSetDefaults(t *testing.T) {
	w := WorkItem{Title: "x", Type: TypeTask, ProjectID: 1}
	w.SetDefaults()
	assert.Equal(t, StatusTodo, w.Status)
	assert.Equal(t, PriorityMedium, w.Priority)

	// Explicit values survive
	w2 := WorkItem{Status: StatusDone, Priority: PriorityHigh}
	w2.SetDefaults()
	assert.Equal(t, StatusDone, w2.Status)
	assert.Equal(t, PriorityHigh, w2.Priority)
}

func TestAllowedParentTable(t *testing.T) {
	allowed := []struct {
		child, parent ItemType
	}{
		{TypeFeature, TypeEpic},
		{TypeStory, TypeFeature},
		{TypeTask, TypeStory},
		{TypeBug, TypeStory},
	}
	for _, pair := range allowed {
		assert.True(t, pair.child.CanHaveParent(pair.parent),
			"%s should be allowed under %s", pair.child, pair.parent)
	}

	forbidden := []struct {
		child, parent ItemType
	}{
		{TypeEpic, TypeEpic},
		{TypeEpic, TypeStory},
		{TypeFeature, TypeFeature},
		{TypeFeature, TypeStory},
		{TypeStory, TypeEpic},
		{TypeTask, TypeEpic},
		{TypeTask, TypeFeature},
		{TypeBug, TypeTask},
	}
	for _, pair := range forbidden {
		assert.False(t, pair.child.CanHaveParent(pair.parent),
			"%s should not be allowed under %s", pair.child, pair.parent)
	}

	assert.True(t, TypeEpic.MustBeRoot())
	assert.False(t, TypeTask.MustBeRoot())
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, StatusInProgress.IsValid())
	assert.False(t, Status("blocked").IsValid())
	assert.True(t, PriorityCritical.IsValid())
	assert.False(t, Priority("p0").IsValid())
	assert.True(t, ProjectArchived.IsValid())
	assert.False(t, ProjectStatus("paused").IsValid())
	assert.True(t, TypeBug.IsValid())
	assert.False(t, ItemType("chore").IsValid())
}
