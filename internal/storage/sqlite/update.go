package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/tracker/internal/storage"
	"github.com/steveyegge/tracker/internal/types"
)

// allowedUpdateFields whitelists column names for UpdateWorkItem.
// item_type is deliberately absent: changing an item's type would
// invalidate its position in the hierarchy, so type is immutable.
var allowedUpdateFields = map[string]bool{
	"title":       true,
	"description": true,
	"status":      true,
	"priority":    true,
	"assignee_id": true,
	"reporter_id": true,
	"estimate":    true,
	"start_date":  true,
	"end_date":    true,
	"parent_id":   true,
}

// UpdateWorkItem applies a patch to a work item. For every field that
// actually changes, one history row with old/new values is appended in
// the same transaction as the mutation. Status transitions into DONE set
// completed_at; transitions away from DONE clear it. A parent_id change
// re-runs hierarchy validation including cycle detection.
func (s *Store) UpdateWorkItem(ctx context.Context, id int64, updates map[string]interface{}, actor int64) error {
	if len(updates) == 0 {
		return nil
	}

	// Canonicalize and validate values before touching the database.
	patch := make(map[string]interface{}, len(updates))
	for key, value := range updates {
		// Prevent SQL injection by validating field names
		if !allowedUpdateFields[key] {
			return fmt.Errorf("%w: invalid field for update: %s", storage.ErrValidation, key)
		}
		canonical, err := canonicalizeUpdateValue(key, value)
		if err != nil {
			return err
		}
		patch[key] = canonical
	}

	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		old, err := scanWorkItem(conn.QueryRowContext(ctx,
			`SELECT `+workItemColumns+` FROM work_items WHERE id = ?`, id))
		if err != nil {
			return fmt.Errorf("work item %d: %w", id, err)
		}

		// Re-parenting re-runs the full hierarchy validation. Cycle
		// detection matters here, not on create: a new item has no
		// descendants yet.
		// The cycle check runs first: moving an item under its own
		// descendant is reported as a cycle even when the type pairing
		// would also be illegal.
		if raw, ok := patch["parent_id"]; ok {
			newParent, _ := raw.(*int64)
			if newParent != nil {
				if err := ensureNoCycle(ctx, conn, id, *newParent); err != nil {
					return err
				}
			}
			if err := validateParent(ctx, conn, old.ProjectID, old.Type, newParent); err != nil {
				return err
			}
		}

		now := time.Now()
		setClauses := []string{"updated_at = ?"}
		args := []interface{}{now}
		type change struct {
			field, oldValue, newValue string
		}
		var changes []change

		for field, value := range patch {
			oldText := serializeField(fieldValue(old, field))
			newText := serializeField(value)
			if oldText == newText {
				continue // not actually changing
			}
			setClauses = append(setClauses, fmt.Sprintf("%s = ?", field))
			args = append(args, value)
			changes = append(changes, change{field, oldText, newText})
		}

		if len(changes) == 0 {
			return nil // no-op patch; no history, no mutation
		}

		// Auto-manage completed_at on DONE transitions.
		if raw, ok := patch["status"]; ok {
			newStatus := raw.(types.Status)
			if newStatus == types.StatusDone && old.Status != types.StatusDone {
				setClauses = append(setClauses, "completed_at = ?")
				args = append(args, now)
			} else if newStatus != types.StatusDone && old.Status == types.StatusDone {
				setClauses = append(setClauses, "completed_at = NULL")
			}
		}

		args = append(args, id)
		query := fmt.Sprintf("UPDATE work_items SET %s WHERE id = ?", strings.Join(setClauses, ", ")) // #nosec G201 - column names validated above
		if _, err := conn.ExecContext(ctx, query, args...); err != nil {
			if isForeignKeyConstraintError(err) {
				return fmt.Errorf("%w: referenced user does not exist", storage.ErrValidation)
			}
			return wrapDBError("update work item", err)
		}

		// Append one immutable history row per changed field.
		var userID interface{}
		if actor != 0 {
			userID = actor
		}
		for _, c := range changes {
			if _, err := conn.ExecContext(ctx, `
				INSERT INTO work_item_history (work_item_id, user_id, field, old_value, new_value, changed_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, id, userID, c.field, c.oldValue, c.newValue, now); err != nil {
				if isForeignKeyConstraintError(err) {
					return fmt.Errorf("%w: acting user does not exist", storage.ErrValidation)
				}
				return wrapDBError("record history", err)
			}
		}
		return nil
	})
}

// MoveWorkItem re-parents a work item. Equivalent to an update restricted
// to parent_id, exposed separately for clarity of intent.
func (s *Store) MoveWorkItem(ctx context.Context, id int64, newParentID *int64, actor int64) error {
	return s.UpdateWorkItem(ctx, id, map[string]interface{}{"parent_id": newParentID}, actor)
}

// canonicalizeUpdateValue converts caller-supplied patch values into the
// canonical Go representation for the column, validating as it goes.
// JSON decoding hands numeric values over as float64, so those are
// accepted everywhere an ID or estimate is expected.
func canonicalizeUpdateValue(field string, value interface{}) (interface{}, error) {
	switch field {
	case "title":
		s, ok := value.(string)
		if !ok || len(s) == 0 {
			return nil, fmt.Errorf("%w: title is required", storage.ErrValidation)
		}
		if len(s) > 500 {
			return nil, fmt.Errorf("%w: title must be 500 characters or less", storage.ErrValidation)
		}
		return s, nil

	case "description":
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: description must be a string", storage.ErrValidation)
		}
		return s, nil

	case "status":
		status, err := asString(value)
		if err != nil {
			return nil, fmt.Errorf("%w: status must be a string", storage.ErrValidation)
		}
		if !types.Status(status).IsValid() {
			return nil, fmt.Errorf("%w: invalid status: %s", storage.ErrValidation, status)
		}
		return types.Status(status), nil

	case "priority":
		priority, err := asString(value)
		if err != nil {
			return nil, fmt.Errorf("%w: priority must be a string", storage.ErrValidation)
		}
		if !types.Priority(priority).IsValid() {
			return nil, fmt.Errorf("%w: invalid priority: %s", storage.ErrValidation, priority)
		}
		return types.Priority(priority), nil

	case "assignee_id", "reporter_id", "parent_id":
		ref, err := asNullableID(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a numeric id or null", storage.ErrValidation, field)
		}
		return ref, nil

	case "estimate":
		est, err := asNullableFloat(value)
		if err != nil {
			return nil, fmt.Errorf("%w: estimate must be a number or null", storage.ErrValidation)
		}
		if est != nil && *est < 0 {
			return nil, fmt.Errorf("%w: estimate cannot be negative", storage.ErrValidation)
		}
		return est, nil

	case "start_date", "end_date":
		ts, err := asNullableTime(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an RFC3339 timestamp or null", storage.ErrValidation, field)
		}
		return ts, nil
	}
	return nil, fmt.Errorf("%w: invalid field for update: %s", storage.ErrValidation, field)
}

func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case types.Status:
		return string(v), nil
	case types.Priority:
		return string(v), nil
	}
	return "", fmt.Errorf("not a string: %T", value)
}

func asNullableID(value interface{}) (*int64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *int64:
		return v, nil
	case int64:
		return &v, nil
	case int:
		id := int64(v)
		return &id, nil
	case float64:
		id := int64(v)
		return &id, nil
	}
	return nil, fmt.Errorf("not an id: %T", value)
}

func asNullableFloat(value interface{}) (*float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *float64:
		return v, nil
	case float64:
		return &v, nil
	case int:
		f := float64(v)
		return &f, nil
	case int64:
		f := float64(v)
		return &f, nil
	}
	return nil, fmt.Errorf("not a number: %T", value)
}

func asNullableTime(value interface{}) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *time.Time:
		return v, nil
	case time.Time:
		return &v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	return nil, fmt.Errorf("not a timestamp: %T", value)
}

// fieldValue extracts the current value of an updatable column from a
// work item, for old/new comparison in history rows.
func fieldValue(item *types.WorkItem, field string) interface{} {
	switch field {
	case "title":
		return item.Title
	case "description":
		return item.Description
	case "status":
		return item.Status
	case "priority":
		return item.Priority
	case "assignee_id":
		return item.AssigneeID
	case "reporter_id":
		return item.ReporterID
	case "parent_id":
		return item.ParentID
	case "estimate":
		return item.Estimate
	case "start_date":
		return item.StartDate
	case "end_date":
		return item.EndDate
	}
	return nil
}

// serializeField renders a field value as text for history storage.
// All old/new values are stored as text regardless of source type;
// nil renders as the empty string.
func serializeField(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case types.Status:
		return string(v)
	case types.Priority:
		return string(v)
	case *int64:
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	case *float64:
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%v", value)
}
