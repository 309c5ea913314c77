package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/steveyegge/tracker/internal/storage"
)

// DeleteWorkItem removes a work item.
//
// Direct children are detached (parent_id cleared), not deleted: they
// remain valid standalone items under the project. The item's own
// comments, attachments and history cascade away with the row.
func (s *Store) DeleteWorkItem(ctx context.Context, id int64) error {
	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		var one int
		err := conn.QueryRowContext(ctx, `SELECT 1 FROM work_items WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("work item %d: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return wrapDBError("get work item", err)
		}

		// Detach children explicitly rather than relying on the FK's
		// SET NULL so the orphan-to-root policy reads as intended.
		if _, err := conn.ExecContext(ctx, `
			UPDATE work_items SET parent_id = NULL WHERE parent_id = ?
		`, id); err != nil {
			return wrapDBError("detach children", err)
		}

		if _, err := conn.ExecContext(ctx, `DELETE FROM work_items WHERE id = ?`, id); err != nil {
			return wrapDBError("delete work item", err)
		}
		return nil
	})
}
