package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/tracker/internal/storage"
	"github.com/steveyegge/tracker/internal/types"
)

// AddAttachment records file metadata against a work item. When the
// caller leaves StoragePath empty a fresh opaque path is generated;
// storing the bytes themselves is outside this core.
func (s *Store) AddAttachment(ctx context.Context, workItemID, userID int64, meta types.FileMeta) (*types.Attachment, error) {
	if strings.TrimSpace(meta.FileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", storage.ErrValidation)
	}
	if meta.FileSize < 0 {
		return nil, fmt.Errorf("%w: file size cannot be negative", storage.ErrValidation)
	}
	if meta.StoragePath == "" {
		meta.StoragePath = "attachments/" + uuid.NewString()
	}

	attachment := &types.Attachment{
		WorkItemID:  workItemID,
		FileName:    meta.FileName,
		FileSize:    meta.FileSize,
		MimeType:    meta.MimeType,
		StoragePath: meta.StoragePath,
	}
	if userID != 0 {
		attachment.UserID = &userID
	}

	err := s.withWriteTx(ctx, func(conn *sql.Conn) error {
		if err := workItemExists(ctx, conn, workItemID); err != nil {
			return err
		}

		attachment.UploadedAt = time.Now()
		res, err := conn.ExecContext(ctx, `
			INSERT INTO attachments (work_item_id, user_id, file_name, file_size, mime_type, storage_path, uploaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, workItemID, attachment.UserID, attachment.FileName, attachment.FileSize,
			attachment.MimeType, attachment.StoragePath, attachment.UploadedAt)
		if err != nil {
			if isForeignKeyConstraintError(err) {
				return fmt.Errorf("%w: referenced user does not exist", storage.ErrValidation)
			}
			return wrapDBError("insert attachment", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapDBError("attachment insert id", err)
		}
		attachment.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// GetAttachments returns a work item's attachments ordered by upload time.
func (s *Store) GetAttachments(ctx context.Context, workItemID int64) ([]*types.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, work_item_id, user_id, file_name, file_size, mime_type, storage_path, uploaded_at
		FROM attachments WHERE work_item_id = ? ORDER BY uploaded_at, id
	`, workItemID)
	if err != nil {
		return nil, wrapDBError("get attachments", err)
	}
	defer func() { _ = rows.Close() }()

	var attachments []*types.Attachment
	for rows.Next() {
		var a types.Attachment
		var userID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.WorkItemID, &userID, &a.FileName, &a.FileSize,
			&a.MimeType, &a.StoragePath, &a.UploadedAt); err != nil {
			return nil, wrapDBError("scan attachment", err)
		}
		if userID.Valid {
			a.UserID = &userID.Int64
		}
		attachments = append(attachments, &a)
	}
	return attachments, rows.Err()
}

// DeleteAttachment hard-deletes an attachment record.
func (s *Store) DeleteAttachment(ctx context.Context, id int64) error {
	return s.withWriteTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
		if err != nil {
			return wrapDBError("delete attachment", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapDBError("delete attachment rows", err)
		}
		if n == 0 {
			return fmt.Errorf("attachment %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}
