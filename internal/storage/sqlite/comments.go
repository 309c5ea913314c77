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

// AddComment appends a comment to a work item with a server-assigned
// timestamp. Fails with ErrNotFound when the work item is absent.
func (s *Store) AddComment(ctx context.Context, workItemID, userID int64, content string) (*types.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: comment content is required", storage.ErrValidation)
	}

	comment := &types.Comment{
		WorkItemID: workItemID,
		Content:    content,
	}
	if userID != 0 {
		comment.UserID = &userID
	}

	err := s.withWriteTx(ctx, func(conn *sql.Conn) error {
		if err := workItemExists(ctx, conn, workItemID); err != nil {
			return err
		}

		now := time.Now()
		comment.CreatedAt = now
		comment.UpdatedAt = now

		res, err := conn.ExecContext(ctx, `
			INSERT INTO comments (work_item_id, user_id, content, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, workItemID, comment.UserID, content, now, now)
		if err != nil {
			if isForeignKeyConstraintError(err) {
				return fmt.Errorf("%w: referenced user does not exist", storage.ErrValidation)
			}
			return wrapDBError("insert comment", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapDBError("comment insert id", err)
		}
		comment.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// GetComments returns a work item's comments ordered by creation time.
func (s *Store) GetComments(ctx context.Context, workItemID int64) ([]*types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, work_item_id, user_id, content, created_at, updated_at
		FROM comments WHERE work_item_id = ? ORDER BY created_at, id
	`, workItemID)
	if err != nil {
		return nil, wrapDBError("get comments", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*types.Comment
	for rows.Next() {
		var c types.Comment
		var userID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.WorkItemID, &userID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, wrapDBError("scan comment", err)
		}
		if userID.Valid {
			c.UserID = &userID.Int64
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// DeleteComment hard-deletes a comment. No history is kept.
func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
		if err != nil {
			return wrapDBError("delete comment", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapDBError("delete comment rows", err)
		}
		if n == 0 {
			return fmt.Errorf("comment %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

// workItemExists verifies a work item row is present.
func workItemExists(ctx context.Context, q querier, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM work_items WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("work item %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return wrapDBError("get work item", err)
	}
	return nil
}
