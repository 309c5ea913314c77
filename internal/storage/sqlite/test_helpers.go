package sqlite

import (
	"context"
	"testing"

	"github.com/steveyegge/tracker/internal/types"
)

// newTestStore creates a Store backed by a temp-file database.
//
// Temp files are used instead of :memory: so connection-pool scenarios
// (concurrent creates, IMMEDIATE transactions) behave like production.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if cerr := store.Close(); cerr != nil {
			t.Fatalf("Failed to close test database: %v", cerr)
		}
	})
	return store
}

// seedProject creates a project with the given key for tests.
func seedProject(t *testing.T, store *Store, key string) *types.Project {
	t.Helper()

	project := &types.Project{Key: key, Name: key + " project"}
	if err := store.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("Failed to seed project %s: %v", key, err)
	}
	return project
}

// seedUser creates a user for attribution in tests.
func seedUser(t *testing.T, store *Store, email string) *types.User {
	t.Helper()

	user := &types.User{Email: email}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to seed user %s: %v", email, err)
	}
	return user
}

// seedItem creates a work item of the given type under an optional parent.
func seedItem(t *testing.T, store *Store, projectID int64, itemType types.ItemType, parentID *int64) *types.WorkItem {
	t.Helper()

	item := &types.WorkItem{
		Title:     "test " + string(itemType),
		Type:      itemType,
		ProjectID: projectID,
		ParentID:  parentID,
	}
	if err := store.CreateWorkItem(context.Background(), item, 0); err != nil {
		t.Fatalf("Failed to seed %s: %v", itemType, err)
	}
	return item
}
