// Package types defines core data structures for the tracker backend.
package types

import (
	"fmt"
	"time"
)

// WorkItem represents a trackable unit of work inside a project.
type WorkItem struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"externalId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        ItemType   `json:"type"`
	Status      Status     `json:"status,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	ProjectID   int64      `json:"projectId"`
	ParentID    *int64     `json:"parentId,omitempty"`
	AssigneeID  *int64     `json:"assigneeId,omitempty"`
	ReporterID  *int64     `json:"reporterId,omitempty"`
	Estimate    *float64   `json:"estimate,omitempty"` // hours or points by convention, not enforced
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Populated only when the caller asks for expansion
	Children    []*WorkItem     `json:"children,omitempty"`
	History     []*HistoryEntry `json:"history,omitempty"`
	Comments    []*Comment      `json:"comments,omitempty"`
	Attachments []*Attachment   `json:"attachments,omitempty"`
}

// Validate checks if the work item has valid field values
func (w *WorkItem) Validate() error {
	if len(w.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(w.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(w.Title))
	}
	if w.ProjectID == 0 {
		return fmt.Errorf("projectId is required")
	}
	if !w.Type.IsValid() {
		return fmt.Errorf("invalid item type: %s", w.Type)
	}
	if !w.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", w.Status)
	}
	if !w.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", w.Priority)
	}
	if w.Estimate != nil && *w.Estimate < 0 {
		return fmt.Errorf("estimate cannot be negative")
	}
	// completed_at invariant: set if and only if status is done
	if w.Status == StatusDone && w.CompletedAt == nil {
		return fmt.Errorf("done items must have completedAt timestamp")
	}
	if w.Status != StatusDone && w.CompletedAt != nil {
		return fmt.Errorf("non-done items cannot have completedAt timestamp")
	}
	return nil
}

// SetDefaults applies default values for fields omitted by the caller:
//   - Status: defaults to StatusTodo if empty
//   - Priority: defaults to PriorityMedium if empty
func (w *WorkItem) SetDefaults() {
	if w.Status == "" {
		w.Status = StatusTodo
	}
	if w.Priority == "" {
		w.Priority = PriorityMedium
	}
}

// Status represents the current state of a work item
type Status string

// Work item status constants
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ItemType represents the kind of work item
type ItemType string

// Work item type constants
const (
	TypeEpic    ItemType = "epic"
	TypeFeature ItemType = "feature"
	TypeStory   ItemType = "story"
	TypeTask    ItemType = "task"
	TypeBug     ItemType = "bug"
)

// IsValid checks if the item type value is valid
func (t ItemType) IsValid() bool {
	switch t {
	case TypeEpic, TypeFeature, TypeStory, TypeTask, TypeBug:
		return true
	}
	return false
}

// allowedParents encodes the epic -> feature -> story -> {task,bug}
// decomposition. A type absent from the map must be a root item.
var allowedParents = map[ItemType]ItemType{
	TypeFeature: TypeEpic,
	TypeStory:   TypeFeature,
	TypeTask:    TypeStory,
	TypeBug:     TypeStory,
}

// CanHaveParent reports whether an item of type t may be parented by
// an item of type parent.
func (t ItemType) CanHaveParent(parent ItemType) bool {
	allowed, ok := allowedParents[t]
	return ok && allowed == parent
}

// MustBeRoot reports whether an item of type t can never have a parent.
func (t ItemType) MustBeRoot() bool {
	_, ok := allowedParents[t]
	return !ok
}

// Priority represents the urgency of a work item
type Priority string

// Work item priority constants
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Project owns the external-ID namespace for its work items.
// The key is immutable once work items reference it.
type Project struct {
	ID        int64         `json:"id"`
	Key       string        `json:"key"`
	Name      string        `json:"name"`
	Status    ProjectStatus `json:"status,omitempty"`
	TeamID    *int64        `json:"teamId,omitempty"`
	CreatedBy *int64        `json:"createdBy,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

// Project status constants
const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectArchived  ProjectStatus = "archived"
	ProjectCompleted ProjectStatus = "completed"
)

// IsValid checks if the project status value is valid
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectArchived, ProjectCompleted:
		return true
	}
	return false
}

// HistoryEntry is one immutable field-change record in a work item's
// audit trail. Rows are never updated or deleted except via cascade
// when the owning work item is deleted.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	WorkItemID int64     `json:"workItemId"`
	UserID     *int64    `json:"userId,omitempty"`
	Field      string    `json:"field"`
	OldValue   string    `json:"oldValue"`
	NewValue   string    `json:"newValue"`
	ChangedAt  time.Time `json:"changedAt"`
}

// Comment is an append-only child record of a work item.
type Comment struct {
	ID         int64     `json:"id"`
	WorkItemID int64     `json:"workItemId"`
	UserID     *int64    `json:"userId,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// FileMeta describes an uploaded file. Storage of the bytes themselves
// is outside this core; StoragePath is an opaque reference.
type FileMeta struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	MimeType    string `json:"mimeType"`
	StoragePath string `json:"storagePath,omitempty"`
}

// Attachment is file metadata tied to a work item.
type Attachment struct {
	ID          int64     `json:"id"`
	WorkItemID  int64     `json:"workItemId"`
	UserID      *int64    `json:"userId,omitempty"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	MimeType    string    `json:"mimeType"`
	StoragePath string    `json:"storagePath"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// User is referenced, never owned, by projects and work items.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	TeamID    *int64    `json:"teamId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Team groups users and optionally owns projects.
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ItemFilter narrows work item listings. Nil fields are ignored.
type ItemFilter struct {
	ProjectID  *int64
	Status     *Status
	Type       *ItemType
	AssigneeID *int64
	ParentID   *int64
}

// ExpandOptions selects which child collections GetWorkItem loads.
type ExpandOptions struct {
	Children    bool
	History     bool
	Comments    bool
	Attachments bool
}
