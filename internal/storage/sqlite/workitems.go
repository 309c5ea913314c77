package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/tracker/internal/storage"
	"github.com/steveyegge/tracker/internal/types"
)

const workItemColumns = `id, external_id, title, description, item_type, status, priority,
	project_id, parent_id, assignee_id, reporter_id, estimate,
	start_date, end_date, completed_at, created_at, updated_at`

// CreateWorkItem creates a new work item.
//
// Inside a single IMMEDIATE transaction it validates the hierarchy,
// allocates (or verifies) the external identifier and inserts the row,
// so concurrent creates for the same project serialize on the write lock.
func (s *Store) CreateWorkItem(ctx context.Context, item *types.WorkItem, actor int64) error {
	item.SetDefaults()

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	// Status done at creation back-fills completion to the creation time.
	if item.Status == types.StatusDone && item.CompletedAt == nil {
		item.CompletedAt = &now
	}

	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		var projectKey string
		err := conn.QueryRowContext(ctx, `SELECT key FROM projects WHERE id = ?`, item.ProjectID).Scan(&projectKey)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("project %d: %w", item.ProjectID, storage.ErrNotFound)
		}
		if err != nil {
			return wrapDBError("get project key", err)
		}

		if err := validateParent(ctx, conn, item.ProjectID, item.Type, item.ParentID); err != nil {
			return err
		}

		if item.ExternalID == "" {
			externalID, err := allocateExternalID(ctx, conn, item.ProjectID, projectKey)
			if err != nil {
				return err
			}
			item.ExternalID = externalID
		} else {
			if err := reserveExplicitID(ctx, conn, item.ExternalID); err != nil {
				return err
			}
		}

		res, err := conn.ExecContext(ctx, `
			INSERT INTO work_items (external_id, title, description, item_type, status, priority,
				project_id, parent_id, assignee_id, reporter_id, estimate,
				start_date, end_date, completed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ExternalID, item.Title, item.Description, item.Type, item.Status, item.Priority,
			item.ProjectID, item.ParentID, item.AssigneeID, item.ReporterID, item.Estimate,
			item.StartDate, item.EndDate, item.CompletedAt, item.CreatedAt, item.UpdatedAt)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("external id %q: %w", item.ExternalID, storage.ErrDuplicateID)
			}
			if isForeignKeyConstraintError(err) {
				return fmt.Errorf("%w: referenced user does not exist", storage.ErrValidation)
			}
			return wrapDBError("insert work item", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return wrapDBError("work item insert id", err)
		}
		item.ID = id
		return nil
	})
}

// GetWorkItem retrieves a work item by internal ID, optionally expanding
// children, history, comments and attachments.
func (s *Store) GetWorkItem(ctx context.Context, id int64, expand types.ExpandOptions) (*types.WorkItem, error) {
	item, err := scanWorkItem(s.db.QueryRowContext(ctx,
		`SELECT `+workItemColumns+` FROM work_items WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	if expand.Children {
		if item.Children, err = s.GetChildren(ctx, id); err != nil {
			return nil, err
		}
	}
	if expand.History {
		if item.History, err = s.GetHistory(ctx, id); err != nil {
			return nil, err
		}
	}
	if expand.Comments {
		if item.Comments, err = s.GetComments(ctx, id); err != nil {
			return nil, err
		}
	}
	if expand.Attachments {
		if item.Attachments, err = s.GetAttachments(ctx, id); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// GetWorkItemByExternalID retrieves a work item by its external identifier.
func (s *Store) GetWorkItemByExternalID(ctx context.Context, externalID string) (*types.WorkItem, error) {
	return scanWorkItem(s.db.QueryRowContext(ctx,
		`SELECT `+workItemColumns+` FROM work_items WHERE external_id = ?`, externalID))
}

// GetChildren returns the direct children of a work item.
func (s *Store) GetChildren(ctx context.Context, id int64) ([]*types.WorkItem, error) {
	return s.queryWorkItems(ctx,
		`SELECT `+workItemColumns+` FROM work_items WHERE parent_id = ? ORDER BY id`, id)
}

// ListWorkItems returns work items matching the filter, ordered by ID.
func (s *Store) ListWorkItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error) {
	var conds []string
	var args []interface{}

	if filter.ProjectID != nil {
		conds = append(conds, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Type != nil {
		conds = append(conds, "item_type = ?")
		args = append(args, *filter.Type)
	}
	if filter.AssigneeID != nil {
		conds = append(conds, "assignee_id = ?")
		args = append(args, *filter.AssigneeID)
	}
	if filter.ParentID != nil {
		conds = append(conds, "parent_id = ?")
		args = append(args, *filter.ParentID)
	}

	query := `SELECT ` + workItemColumns + ` FROM work_items`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	return s.queryWorkItems(ctx, query, args...)
}

func (s *Store) queryWorkItems(ctx context.Context, query string, args ...interface{}) ([]*types.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("query work items", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*types.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkItem(row rowScanner) (*types.WorkItem, error) {
	var item types.WorkItem
	var parentID, assigneeID, reporterID sql.NullInt64
	var estimate sql.NullFloat64
	var startDate, endDate, completedAt sql.NullTime

	err := row.Scan(&item.ID, &item.ExternalID, &item.Title, &item.Description,
		&item.Type, &item.Status, &item.Priority,
		&item.ProjectID, &parentID, &assigneeID, &reporterID, &estimate,
		&startDate, &endDate, &completedAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, wrapDBError("get work item", err)
	}

	if parentID.Valid {
		item.ParentID = &parentID.Int64
	}
	if assigneeID.Valid {
		item.AssigneeID = &assigneeID.Int64
	}
	if reporterID.Valid {
		item.ReporterID = &reporterID.Int64
	}
	if estimate.Valid {
		item.Estimate = &estimate.Float64
	}
	if startDate.Valid {
		item.StartDate = &startDate.Time
	}
	if endDate.Valid {
		item.EndDate = &endDate.Time
	}
	if completedAt.Valid {
		item.CompletedAt = &completedAt.Time
	}
	return &item, nil
}
