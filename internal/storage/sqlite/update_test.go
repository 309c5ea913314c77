package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/tracker/internal/storage"
	"github.com/steveyegge/tracker/internal/types"
)

func TestUpdateStatusManagesCompletedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")
	story := seedItem(t, store, proj.ID, types.TypeStory, nil)
	actor := seedUser(t, store, "pm@example.com")

	// TODO -> DONE sets completedAt and appends one status row
	require.NoError(t, store.UpdateWorkItem(ctx, story.ID, map[string]interface{}{"status": "done"}, actor.ID))

	fetched, err := store.GetWorkItem(ctx, story.ID, types.ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, fetched.Status)
	require.NotNil(t, fetched.CompletedAt)

	history, err := store.GetHistory(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "status", history[0].Field)
	assert.Equal(t, "todo", history[0].OldValue)
	assert.Equal(t, "done", history[0].NewValue)
	require.NotNil(t, history[0].UserID)
	assert.Equal(t, actor.ID, *history[0].UserID)

	// DONE -> IN_PROGRESS clears completedAt and appends another row
	require.NoError(t, store.UpdateWorkItem(ctx, story.ID, map[string]interface{}{"status": "in_progress"}, actor.ID))

	fetched, err = store.GetWorkItem(ctx, story.ID, types.ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, fetched.Status)
	assert.Nil(t, fetched.CompletedAt)

	history, err = store.GetHistory(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "done", history[1].OldValue)
	assert.Equal(t, "in_progress", history[1].NewValue)
}

func TestUpdateRecordsOneHistoryRowPerChangedField(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")
	task := seedItem(t, store, proj.ID, types.TypeTask, nil)
	actor := seedUser(t, store, "dev@example.com")

	est := 8.0
	require.NoError(t, store.UpdateWorkItem(ctx, task.ID, map[string]interface{}{
		"title":    "sharper title",
		"priority": "high",
		"estimate": est,
		"status":   "todo", // unchanged: must not produce a row
	}, actor.ID))

	history, err := store.GetHistory(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	byField := make(map[string]*types.HistoryEntry)
	for _, e := range history {
		byField[e.Field] = e
	}
	require.Contains(t, byField, "title")
	assert.Equal(t, "test task", byField["title"].OldValue)
	assert.Equal(t, "sharper title", byField["title"].NewValue)
	require.Contains(t, byField, "priority")
	assert.Equal(t, "medium", byField["priority"].OldValue)
	assert.Equal(t, "high", byField["priority"].NewValue)
	require.Contains(t, byField, "estimate")
	assert.Equal(t, "", byField["estimate"].OldValue)
	assert.Equal(t, "8", byField["estimate"].NewValue)
	assert.NotContains(t, byField, "status")
}

func TestUpdateNoOpPatchLeavesNoTrace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")
	task := seedItem(t, store, proj.ID, types.TypeTask, nil)

	before, err := store.GetWorkItem(ctx, task.ID, types.ExpandOptions{})
	require.NoError(t, err)

	require.NoError(t, store.UpdateWorkItem(ctx, task.ID, map[string]interface{}{"status": "todo"}, 0))

	after, err := store.GetWorkItem(ctx, task.ID, types.ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

	history, err := store.GetHistory(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdateValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")
	task := seedItem(t, store, proj.ID, types.TypeTask, nil)

	assert.ErrorIs(t, store.UpdateWorkItem(ctx, task.ID, map[string]interface{}{"item_type": "bug"}, 0), storage.ErrValidation)
	assert.ErrorIs(t, store.UpdateWorkItem(ctx, task.ID, map[string]interface{}{"status": "cancelled"}, 0), storage.ErrValidation)
	assert.ErrorIs(t, store.UpdateWorkItem(ctx, task.ID, map[string]interface{}{"title": ""}, 0), storage.ErrValidation)
	assert.ErrorIs(t, store.UpdateWorkItem(ctx, task.ID, map[string]interface{}{"estimate": -2.0}, 0), storage.ErrValidation)
	assert.ErrorIs(t, store.UpdateWorkItem(ctx, 9999, map[string]interface{}{"title": "x"}, 0), storage.ErrNotFound)

	// Attribution must reference a real user
	assert.ErrorIs(t, store.UpdateWorkItem(ctx, task.ID, map[string]interface{}{"title": "y"}, 999), storage.ErrValidation)
}

func TestMoveReparents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")

	epic := seedItem(t, store, proj.ID, types.TypeEpic, nil)
	feature := seedItem(t, store, proj.ID, types.TypeFeature, &epic.ID)
	storyA := seedItem(t, store, proj.ID, types.TypeStory, &feature.ID)
	storyB := seedItem(t, store, proj.ID, types.TypeStory, &feature.ID)
	task := seedItem(t, store, proj.ID, types.TypeTask, &storyA.ID)

	require.NoError(t, store.MoveWorkItem(ctx, task.ID, &storyB.ID, 0))

	fetched, err := store.GetWorkItem(ctx, task.ID, types.ExpandOptions{})
	require.NoError(t, err)
	require.NotNil(t, fetched.ParentID)
	assert.Equal(t, storyB.ID, *fetched.ParentID)

	history, err := store.GetHistory(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "parent_id", history[0].Field)

	// Detach to root
	require.NoError(t, store.MoveWorkItem(ctx, task.ID, nil, 0))
	fetched, err = store.GetWorkItem(ctx, task.ID, types.ExpandOptions{})
	require.NoError(t, err)
	assert.Nil(t, fetched.ParentID)
}

func TestMoveRejectsIllegalParents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")
	other := seedProject(t, store, "OTHER")

	epic := seedItem(t, store, proj.ID, types.TypeEpic, nil)
	feature := seedItem(t, store, proj.ID, types.TypeFeature, &epic.ID)
	story := seedItem(t, store, proj.ID, types.TypeStory, &feature.ID)
	task := seedItem(t, store, proj.ID, types.TypeTask, &story.ID)

	// Wrong type pairing
	assert.ErrorIs(t, store.MoveWorkItem(ctx, task.ID, &epic.ID, 0), storage.ErrInvalidHierarchy)

	// Cross-project parent
	foreignStory := seedItem(t, store, other.ID, types.TypeStory, nil)
	foreignTask := seedItem(t, store, other.ID, types.TypeTask, &foreignStory.ID)
	assert.ErrorIs(t, store.MoveWorkItem(ctx, foreignTask.ID, &story.ID, 0), storage.ErrInvalidHierarchy)

	// Epics must stay root (story here is not a descendant of epic2)
	epic2 := seedItem(t, store, proj.ID, types.TypeEpic, nil)
	assert.ErrorIs(t, store.MoveWorkItem(ctx, epic2.ID, &story.ID, 0), storage.ErrInvalidHierarchy)
}

func TestMoveCrossProjectDeepChainNotReportedAsCycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	small := seedProject(t, store, "SMALL")
	big := seedProject(t, store, "BIG")

	mover := seedItem(t, store, small.ID, types.TypeEpic, nil)

	epic := seedItem(t, store, big.ID, types.TypeEpic, nil)
	feature := seedItem(t, store, big.ID, types.TypeFeature, &epic.ID)
	story := seedItem(t, store, big.ID, types.TypeStory, &feature.ID)

	// The ancestor chain above the proposed parent is deeper than the
	// mover's whole project; the failure must still be the hierarchy
	// kind, not a cycle.
	err := store.MoveWorkItem(ctx, mover.ID, &story.ID, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrInvalidHierarchy)
	assert.NotErrorIs(t, err, storage.ErrCycle)
}

func TestMoveCycleDetected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")

	epic := seedItem(t, store, proj.ID, types.TypeEpic, nil)
	feature := seedItem(t, store, proj.ID, types.TypeFeature, &epic.ID)
	story := seedItem(t, store, proj.ID, types.TypeStory, &feature.ID)
	task := seedItem(t, store, proj.ID, types.TypeTask, &story.ID)

	// A story cannot move under one of its own task children
	err := store.MoveWorkItem(ctx, story.ID, &task.ID, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrCycle)

	// Nor can an item become its own parent
	assert.ErrorIs(t, store.MoveWorkItem(ctx, story.ID, &story.ID, 0), storage.ErrCycle)

	// Deeper: feature under the story two levels below it
	assert.ErrorIs(t, store.MoveWorkItem(ctx, feature.ID, &story.ID, 0), storage.ErrCycle)

	// Nothing moved
	fetched, err := store.GetWorkItem(ctx, story.ID, types.ExpandOptions{})
	require.NoError(t, err)
	require.NotNil(t, fetched.ParentID)
	assert.Equal(t, feature.ID, *fetched.ParentID)
}
