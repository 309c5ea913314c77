package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/steveyegge/tracker/internal/storage"
	"github.com/steveyegge/tracker/internal/types"
)

// validateParent enforces the parent/child rules for a proposed
// (type, parent) pair:
//
//   - a nil parent is always legal (root item)
//   - the parent must exist and belong to the same project
//   - the (child type, parent type) pair must be in the allowed table
//     (epic -> feature -> story -> {task, bug})
func validateParent(ctx context.Context, q querier, projectID int64, itemType types.ItemType, parentID *int64) error {
	if parentID == nil {
		return nil
	}

	var parentType types.ItemType
	var parentProject int64
	err := q.QueryRowContext(ctx, `
		SELECT item_type, project_id FROM work_items WHERE id = ?
	`, *parentID).Scan(&parentType, &parentProject)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("parent %d: %w", *parentID, storage.ErrNotFound)
	}
	if err != nil {
		return wrapDBError("get parent", err)
	}

	if parentProject != projectID {
		return fmt.Errorf("parent %d belongs to project %d, not %d: %w",
			*parentID, parentProject, projectID, storage.ErrInvalidHierarchy)
	}
	if !itemType.CanHaveParent(parentType) {
		return fmt.Errorf("%s cannot be a child of %s: %w", itemType, parentType, storage.ErrInvalidHierarchy)
	}
	return nil
}

// ensureNoCycle walks ancestor links from the proposed parent upward and
// fails if it reaches the item being re-parented. The walk is bounded by
// the item count of the parent's project, since that is where the chain
// being walked lives; the hierarchy is stored as id references, so a
// tree shape is validated here rather than assumed.
func ensureNoCycle(ctx context.Context, q querier, itemID, newParentID int64) error {
	var bound int64
	if err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM work_items
		WHERE project_id = (SELECT project_id FROM work_items WHERE id = ?)
	`, newParentID).Scan(&bound); err != nil {
		return wrapDBError("count project items", err)
	}

	current := newParentID
	for steps := int64(0); steps <= bound; steps++ {
		if current == itemID {
			return fmt.Errorf("item %d is an ancestor of %d: %w", itemID, newParentID, storage.ErrCycle)
		}
		var parent sql.NullInt64
		err := q.QueryRowContext(ctx, `SELECT parent_id FROM work_items WHERE id = ?`, current).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			return nil // broken link, nothing above
		}
		if err != nil {
			return wrapDBError("walk ancestors", err)
		}
		if !parent.Valid {
			return nil // reached a root
		}
		current = parent.Int64
	}
	// More steps than items in the project means the links already loop.
	return fmt.Errorf("ancestor walk exceeded project size: %w", storage.ErrCycle)
}
