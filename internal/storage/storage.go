// Package storage defines the interface and shared error values for the
// tracker persistence layer.
//
// The concrete implementation lives in the sqlite sub-package. Consumers
// depend on the Storage interface rather than the concrete type so that
// alternative implementations (mocks, proxies, etc.) can be substituted.
package storage

import (
	"context"
	"errors"

	"github.com/steveyegge/tracker/internal/types"
)

// Sentinel errors surfaced to callers. Each is scoped to a single
// operation; none is fatal to the process.
var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a missing or malformed required field.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateID indicates an explicit external ID collides with an
	// existing work item.
	ErrDuplicateID = errors.New("duplicate external identifier")

	// ErrInvalidHierarchy indicates a type/parent mismatch or a
	// cross-project parent reference.
	ErrInvalidHierarchy = errors.New("invalid hierarchy")

	// ErrCycle indicates a re-parent would make an item its own ancestor.
	ErrCycle = errors.New("hierarchy cycle detected")

	// ErrConflict indicates a serialization failure on concurrent
	// mutation. Callers may safely retry.
	ErrConflict = errors.New("concurrency conflict")
)

// Storage is the interface satisfied by *sqlite.Store.
//
// Actor parameters carry the authenticated user's numeric ID for history
// attribution; zero means unattributed.
type Storage interface {
	// Projects
	CreateProject(ctx context.Context, project *types.Project) error
	GetProject(ctx context.Context, id int64) (*types.Project, error)
	GetProjectByKey(ctx context.Context, key string) (*types.Project, error)
	ListProjects(ctx context.Context) ([]*types.Project, error)
	UpdateProject(ctx context.Context, id int64, updates map[string]interface{}) error
	DeleteProject(ctx context.Context, id int64) error

	// Work items
	CreateWorkItem(ctx context.Context, item *types.WorkItem, actor int64) error
	GetWorkItem(ctx context.Context, id int64, expand types.ExpandOptions) (*types.WorkItem, error)
	GetWorkItemByExternalID(ctx context.Context, externalID string) (*types.WorkItem, error)
	ListWorkItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error)
	UpdateWorkItem(ctx context.Context, id int64, updates map[string]interface{}, actor int64) error
	MoveWorkItem(ctx context.Context, id int64, newParentID *int64, actor int64) error
	DeleteWorkItem(ctx context.Context, id int64) error
	GetChildren(ctx context.Context, id int64) ([]*types.WorkItem, error)

	// Audit trail
	GetHistory(ctx context.Context, workItemID int64) ([]*types.HistoryEntry, error)

	// Comments and attachments
	AddComment(ctx context.Context, workItemID, userID int64, content string) (*types.Comment, error)
	GetComments(ctx context.Context, workItemID int64) ([]*types.Comment, error)
	DeleteComment(ctx context.Context, id int64) error
	AddAttachment(ctx context.Context, workItemID, userID int64, meta types.FileMeta) (*types.Attachment, error)
	GetAttachments(ctx context.Context, workItemID int64) ([]*types.Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) error

	// Users and teams
	CreateUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, id int64) (*types.User, error)
	ListUsers(ctx context.Context) ([]*types.User, error)
	DeleteUser(ctx context.Context, id int64) error
	CreateTeam(ctx context.Context, team *types.Team) error
	GetTeam(ctx context.Context, id int64) (*types.Team, error)
	DeleteTeam(ctx context.Context, id int64) error

	// Lifecycle
	Close() error
}
