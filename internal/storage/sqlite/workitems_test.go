package sqlite

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/tracker/internal/storage"
	"github.com/steveyegge/tracker/internal/types"
)

func TestCreateWorkItemAllocatesSequentialIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")
	other := seedProject(t, store, "OTHER")

	for i, want := range []string{"PROJ-1", "PROJ-2", "PROJ-3"} {
		item := &types.WorkItem{Title: "item", Type: types.TypeEpic, ProjectID: proj.ID}
		require.NoError(t, store.CreateWorkItem(ctx, item, 0), "create %d", i)
		assert.Equal(t, want, item.ExternalID)
	}

	// Sequences are scoped per project
	item := &types.WorkItem{Title: "item", Type: types.TypeEpic, ProjectID: other.ID}
	require.NoError(t, store.CreateWorkItem(ctx, item, 0))
	assert.Equal(t, "OTHER-1", item.ExternalID)
}

func TestSequenceNotReusedAfterDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")

	first := seedItem(t, store, proj.ID, types.TypeEpic, nil)
	assert.Equal(t, "PROJ-1", first.ExternalID)
	require.NoError(t, store.DeleteWorkItem(ctx, first.ID))

	second := seedItem(t, store, proj.ID, types.TypeEpic, nil)
	assert.Equal(t, "PROJ-2", second.ExternalID)
}

func TestHierarchyScenario(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")

	epic := seedItem(t, store, proj.ID, types.TypeEpic, nil)
	assert.Equal(t, "PROJ-1", epic.ExternalID)

	feature := seedItem(t, store, proj.ID, types.TypeFeature, &epic.ID)
	assert.Equal(t, "PROJ-2", feature.ExternalID)

	story := seedItem(t, store, proj.ID, types.TypeStory, &feature.ID)
	assert.Equal(t, "PROJ-3", story.ExternalID)

	// A second epic directly under the story is not a legal pairing
	badEpic := &types.WorkItem{Title: "nested epic", Type: types.TypeEpic, ProjectID: proj.ID, ParentID: &story.ID}
	err := store.CreateWorkItem(ctx, badEpic, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrInvalidHierarchy)

	// Tasks and bugs go under stories
	task := seedItem(t, store, proj.ID, types.TypeTask, &story.ID)
	assert.Equal(t, "PROJ-4", task.ExternalID)
	bug := seedItem(t, store, proj.ID, types.TypeBug, &story.ID)
	assert.Equal(t, "PROJ-5", bug.ExternalID)

	// But not directly under features or epics
	badTask := &types.WorkItem{Title: "bad task", Type: types.TypeTask, ProjectID: proj.ID, ParentID: &feature.ID}
	assert.ErrorIs(t, store.CreateWorkItem(ctx, badTask, 0), storage.ErrInvalidHierarchy)
	badBug := &types.WorkItem{Title: "bad bug", Type: types.TypeBug, ProjectID: proj.ID, ParentID: &epic.ID}
	assert.ErrorIs(t, store.CreateWorkItem(ctx, badBug, 0), storage.ErrInvalidHierarchy)
}

func TestCreateWorkItemValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")

	missingTitle := &types.WorkItem{Type: types.TypeTask, ProjectID: proj.ID}
	assert.ErrorIs(t, store.CreateWorkItem(ctx, missingTitle, 0), storage.ErrValidation)

	badType := &types.WorkItem{Title: "x", Type: "initiative", ProjectID: proj.ID}
	assert.ErrorIs(t, store.CreateWorkItem(ctx, badType, 0), storage.ErrValidation)

	noProject := &types.WorkItem{Title: "x", Type: types.TypeTask}
	assert.ErrorIs(t, store.CreateWorkItem(ctx, noProject, 0), storage.ErrValidation)

	ghostProject := &types.WorkItem{Title: "x", Type: types.TypeTask, ProjectID: 9999}
	assert.ErrorIs(t, store.CreateWorkItem(ctx, ghostProject, 0), storage.ErrNotFound)

	ghostParent := int64(9999)
	orphan := &types.WorkItem{Title: "x", Type: types.TypeTask, ProjectID: proj.ID, ParentID: &ghostParent}
	assert.ErrorIs(t, store.CreateWorkItem(ctx, orphan, 0), storage.ErrNotFound)
}

func TestCrossProjectParentRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	projA := seedProject(t, store, "AA")
	projB := seedProject(t, store, "BB")

	epic := seedItem(t, store, projA.ID, types.TypeEpic, nil)

	foreign := &types.WorkItem{Title: "feature", Type: types.TypeFeature, ProjectID: projB.ID, ParentID: &epic.ID}
	err := store.CreateWorkItem(ctx, foreign, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrInvalidHierarchy)
}

func TestExplicitExternalID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")

	explicit := &types.WorkItem{Title: "x", Type: types.TypeEpic, ProjectID: proj.ID, ExternalID: "PROJ-7"}
	require.NoError(t, store.CreateWorkItem(ctx, explicit, 0))
	assert.Equal(t, "PROJ-7", explicit.ExternalID)

	// A colliding explicit ID fails
	dup := &types.WorkItem{Title: "y", Type: types.TypeEpic, ProjectID: proj.ID, ExternalID: "PROJ-7"}
	err := store.CreateWorkItem(ctx, dup, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDuplicateID)

	// The counter advanced past the explicit sequence
	next := &types.WorkItem{Title: "z", Type: types.TypeEpic, ProjectID: proj.ID}
	require.NoError(t, store.CreateWorkItem(ctx, next, 0))
	assert.Equal(t, "PROJ-8", next.ExternalID)
}

func TestExplicitIDInAnotherProjectsNamespace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")
	other := seedProject(t, store, "OTHER")

	// An explicit ID created under PROJ that occupies OTHER's namespace
	occupant := &types.WorkItem{Title: "x", Type: types.TypeEpic, ProjectID: proj.ID, ExternalID: "OTHER-1"}
	require.NoError(t, store.CreateWorkItem(ctx, occupant, 0))

	// OTHER's allocator must skip past the occupied sequence
	next := &types.WorkItem{Title: "y", Type: types.TypeEpic, ProjectID: other.ID}
	require.NoError(t, store.CreateWorkItem(ctx, next, 0))
	assert.Equal(t, "OTHER-2", next.ExternalID)

	// PROJ's own counter is untouched
	own := &types.WorkItem{Title: "z", Type: types.TypeEpic, ProjectID: proj.ID}
	require.NoError(t, store.CreateWorkItem(ctx, own, 0))
	assert.Equal(t, "PROJ-1", own.ExternalID)
}

func TestProjectCreatedAfterExplicitIDsInItsNamespace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")

	early := &types.WorkItem{Title: "x", Type: types.TypeEpic, ProjectID: proj.ID, ExternalID: "LATER-5"}
	require.NoError(t, store.CreateWorkItem(ctx, early, 0))

	// The counter of a project created afterwards starts past the IDs
	// already sitting in its namespace.
	later := seedProject(t, store, "LATER")
	item := &types.WorkItem{Title: "y", Type: types.TypeEpic, ProjectID: later.ID}
	require.NoError(t, store.CreateWorkItem(ctx, item, 0))
	assert.Equal(t, "LATER-6", item.ExternalID)
}

func TestExternalIDUniqueAcrossProjects(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	projA := seedProject(t, store, "AA")
	projB := seedProject(t, store, "BB")

	first := &types.WorkItem{Title: "x", Type: types.TypeEpic, ProjectID: projA.ID, ExternalID: "SHARED-1"}
	require.NoError(t, store.CreateWorkItem(ctx, first, 0))

	// Even in a different project, an explicit ID may not collide
	second := &types.WorkItem{Title: "y", Type: types.TypeEpic, ProjectID: projB.ID, ExternalID: "SHARED-1"}
	assert.ErrorIs(t, store.CreateWorkItem(ctx, second, 0), storage.ErrDuplicateID)
}

func TestCreateDoneSetsCompletedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")

	item := &types.WorkItem{Title: "x", Type: types.TypeTask, Status: types.StatusDone, ProjectID: proj.ID}
	require.NoError(t, store.CreateWorkItem(ctx, item, 0))
	require.NotNil(t, item.CompletedAt)
	assert.Equal(t, item.CreatedAt, *item.CompletedAt)

	fetched, err := store.GetWorkItem(ctx, item.ID, types.ExpandOptions{})
	require.NoError(t, err)
	assert.NotNil(t, fetched.CompletedAt)
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")

	const workers = 10
	var mu sync.Mutex
	seen := make(map[string]bool)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			item := &types.WorkItem{Title: "concurrent", Type: types.TypeEpic, ProjectID: proj.ID}
			if err := store.CreateWorkItem(ctx, item, 0); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[item.ExternalID] {
				t.Errorf("duplicate external ID allocated: %s", item.ExternalID)
			}
			seen[item.ExternalID] = true
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, seen, workers)

	// And allocation stayed dense: next ID continues the sequence
	next := &types.WorkItem{Title: "after", Type: types.TypeEpic, ProjectID: proj.ID}
	require.NoError(t, store.CreateWorkItem(ctx, next, 0))
	assert.Equal(t, "PROJ-11", next.ExternalID)
}

func TestGetWorkItemExpansion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")

	epic := seedItem(t, store, proj.ID, types.TypeEpic, nil)
	seedItem(t, store, proj.ID, types.TypeFeature, &epic.ID)
	seedItem(t, store, proj.ID, types.TypeFeature, &epic.ID)

	_, err := store.AddComment(ctx, epic.ID, 0, "first comment")
	require.NoError(t, err)
	_, err = store.AddAttachment(ctx, epic.ID, 0, types.FileMeta{FileName: "spec.pdf", FileSize: 1024, MimeType: "application/pdf"})
	require.NoError(t, err)
	require.NoError(t, store.UpdateWorkItem(ctx, epic.ID, map[string]interface{}{"title": "renamed epic"}, 0))

	plain, err := store.GetWorkItem(ctx, epic.ID, types.ExpandOptions{})
	require.NoError(t, err)
	assert.Empty(t, plain.Children)
	assert.Empty(t, plain.History)
	assert.Empty(t, plain.Comments)
	assert.Empty(t, plain.Attachments)

	full, err := store.GetWorkItem(ctx, epic.ID, types.ExpandOptions{
		Children: true, History: true, Comments: true, Attachments: true,
	})
	require.NoError(t, err)
	assert.Len(t, full.Children, 2)
	assert.Len(t, full.History, 1)
	assert.Len(t, full.Comments, 1)
	assert.Len(t, full.Attachments, 1)

	_, err = store.GetWorkItem(ctx, 9999, types.ExpandOptions{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetWorkItemByExternalID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")
	item := seedItem(t, store, proj.ID, types.TypeEpic, nil)

	fetched, err := store.GetWorkItemByExternalID(ctx, item.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, fetched.ID)

	_, err = store.GetWorkItemByExternalID(ctx, "PROJ-999")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListWorkItemsFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	proj := seedProject(t, store, "PROJ")
	other := seedProject(t, store, "OTHER")

	epic := seedItem(t, store, proj.ID, types.TypeEpic, nil)
	feature := seedItem(t, store, proj.ID, types.TypeFeature, &epic.ID)
	seedItem(t, store, other.ID, types.TypeEpic, nil)

	require.NoError(t, store.UpdateWorkItem(ctx, feature.ID, map[string]interface{}{"status": "in_progress"}, 0))

	byProject, err := store.ListWorkItems(ctx, types.ItemFilter{ProjectID: &proj.ID})
	require.NoError(t, err)
	assert.Len(t, byProject, 2)

	inProgress := types.StatusInProgress
	byStatus, err := store.ListWorkItems(ctx, types.ItemFilter{ProjectID: &proj.ID, Status: &inProgress})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, feature.ID, byStatus[0].ID)

	epicType := types.TypeEpic
	byType, err := store.ListWorkItems(ctx, types.ItemFilter{Type: &epicType})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	children, err := store.ListWorkItems(ctx, types.ItemFilter{ParentID: &epic.ID})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, feature.ID, children[0].ID)
}
