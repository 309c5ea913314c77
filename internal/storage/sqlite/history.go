package sqlite

import (
	"context"
	"database/sql"

	"github.com/steveyegge/tracker/internal/types"
)

// GetHistory returns a work item's audit trail ordered by change time
// ascending (insertion order breaks ties). Rows are never mutated after
// insertion; there is no update or delete path for history.
func (s *Store) GetHistory(ctx context.Context, workItemID int64) ([]*types.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, work_item_id, user_id, field, old_value, new_value, changed_at
		FROM work_item_history
		WHERE work_item_id = ?
		ORDER BY changed_at, id
	`, workItemID)
	if err != nil {
		return nil, wrapDBError("get history", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		var userID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.WorkItemID, &userID, &e.Field, &e.OldValue, &e.NewValue, &e.ChangedAt); err != nil {
			return nil, wrapDBError("scan history", err)
		}
		if userID.Valid {
			e.UserID = &userID.Int64
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
