package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/steveyegge/tracker/internal/idgen"
	"github.com/steveyegge/tracker/internal/storage"
)

// allocateExternalID hands out the next {key}-{n} identifier for a project.
//
// The counter row is bumped inside the caller's IMMEDIATE transaction, so
// two concurrent creates for the same project can never read the same
// sequence number. Computing max+1 from existing rows would be racy;
// the counter also survives deletes, so identifiers are never reused.
func allocateExternalID(ctx context.Context, q querier, projectID int64, key string) (string, error) {
	var seq int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO item_counters (project_id, last_seq) VALUES (?, 1)
		ON CONFLICT(project_id) DO UPDATE SET last_seq = last_seq + 1
		RETURNING last_seq
	`, projectID).Scan(&seq)
	if err != nil {
		return "", wrapDBError("allocate external id", err)
	}
	return idgen.Format(key, seq), nil
}

// reserveExplicitID checks a caller-supplied external identifier for
// uniqueness. When the identifier parses as {key}-{n}, the counter of
// whichever project owns that key namespace advances past n, so that
// project's future allocations cannot collide with it. The key need not
// belong to the creating item's own project: an explicit ID may occupy
// another project's namespace, and that project's allocator must still
// skip it.
func reserveExplicitID(ctx context.Context, q querier, externalID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM work_items WHERE external_id = ?`, externalID).Scan(&one)
	if err == nil {
		return fmt.Errorf("external id %q: %w", externalID, storage.ErrDuplicateID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return wrapDBError("check external id", err)
	}

	if key, seq, ok := idgen.Parse(externalID); ok {
		if _, err := q.ExecContext(ctx, `
			UPDATE item_counters SET last_seq = max(last_seq, ?)
			WHERE project_id = (SELECT id FROM projects WHERE key = ?)
		`, seq, key); err != nil {
			return wrapDBError("advance item counter", err)
		}
	}
	return nil
}
